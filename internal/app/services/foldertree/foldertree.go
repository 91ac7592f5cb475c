// Package foldertree manages each owner's forest of folders.
//
// A folder that exists but belongs to someone else is reported exactly like
// a folder that does not exist.
package foldertree

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/stratadrive/internal/app/system/apperr"
	"github.com/dalemusser/stratadrive/internal/app/system/normalize"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// MaxDepth bounds the breadcrumb walk.
const MaxDepth = 64

// MaxNameLength is the longest accepted folder name.
const MaxNameLength = 255

// FolderStore is the persistence the tree needs.
type FolderStore interface {
	Create(ctx context.Context, owner primitive.ObjectID, name string, parentID *primitive.ObjectID) (*models.Folder, error)
	GetForOwner(ctx context.Context, owner, id primitive.ObjectID) (*models.Folder, error)
	ListByParent(ctx context.Context, owner primitive.ObjectID, parentID *primitive.ObjectID) ([]models.Folder, error)
}

// FileLister lists the current version of each file in a folder.
type FileLister interface {
	ListCurrentInFolder(ctx context.Context, owner primitive.ObjectID, folderID *primitive.ObjectID) ([]models.FileVersion, error)
}

// Contents is one folder view: its subfolders, its current files and the
// breadcrumb trail leading to it.
type Contents struct {
	Folder      *models.Folder       `json:"folder"`
	Folders     []models.Folder      `json:"folders"`
	Files       []models.FileVersion `json:"files"`
	Breadcrumbs []models.PathEntry   `json:"breadcrumbs"`
}

type Service struct {
	folders FolderStore
	files   FileLister
	logger  *zap.Logger
}

func New(folders FolderStore, files FileLister, logger *zap.Logger) *Service {
	return &Service{folders: folders, files: files, logger: logger}
}

// CreateFolder adds a folder under parentID (nil for the root).
func (s *Service) CreateFolder(ctx context.Context, owner primitive.ObjectID, name string, parentID *primitive.ObjectID) (*models.Folder, error) {
	name = normalize.Name(name)
	switch {
	case name == "":
		return nil, apperr.Invalid("name", "Folder name is required.")
	case len(name) > MaxNameLength:
		return nil, apperr.Invalid("name", fmt.Sprintf("Folder name must be at most %d characters.", MaxNameLength))
	}

	if err := s.VerifyOwnership(ctx, owner, parentID); err != nil {
		return nil, err
	}

	f, err := s.folders.Create(ctx, owner, name, parentID)
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("create folder: %w", err)
	}

	s.logger.Info("folder created",
		zap.String("owner_id", owner.Hex()),
		zap.String("folder_id", f.ID.Hex()))
	return f, nil
}

// ListChildren returns the folders directly under parentID, in name order.
func (s *Service) ListChildren(ctx context.Context, owner primitive.ObjectID, parentID *primitive.ObjectID) ([]models.Folder, error) {
	folders, err := s.folders.ListByParent(ctx, owner, parentID)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	return folders, nil
}

// VerifyOwnership succeeds for the root and for folders owned by owner.
func (s *Service) VerifyOwnership(ctx context.Context, owner primitive.ObjectID, folderID *primitive.ObjectID) error {
	if folderID == nil {
		return nil
	}
	if _, err := s.folders.GetForOwner(ctx, owner, *folderID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.ErrNotFound
		}
		return fmt.Errorf("load folder: %w", err)
	}
	return nil
}

// ResolvePath returns the breadcrumb trail from the root down to folderID,
// inclusive. The walk is best effort: a missing ancestor ends it and the
// entries found so far are returned.
func (s *Service) ResolvePath(ctx context.Context, owner primitive.ObjectID, folderID *primitive.ObjectID) ([]models.PathEntry, error) {
	path := []models.PathEntry{}
	if folderID == nil {
		return path, nil
	}

	seen := make(map[primitive.ObjectID]bool)
	next := folderID
	for depth := 0; next != nil && depth < MaxDepth; depth++ {
		if seen[*next] {
			s.logger.Warn("folder cycle detected",
				zap.String("owner_id", owner.Hex()),
				zap.String("folder_id", next.Hex()))
			break
		}
		seen[*next] = true

		f, err := s.folders.GetForOwner(ctx, owner, *next)
		if errors.Is(err, apperr.ErrNotFound) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("resolve path: %w", err)
		}
		path = append(path, models.PathEntry{ID: f.ID, Name: f.Name})
		next = f.ParentID
	}

	// Collected leaf first.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// Contents returns the view of folderID (nil for the root).
func (s *Service) Contents(ctx context.Context, owner primitive.ObjectID, folderID *primitive.ObjectID) (*Contents, error) {
	out := &Contents{}
	if folderID != nil {
		f, err := s.folders.GetForOwner(ctx, owner, *folderID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return nil, apperr.ErrNotFound
			}
			return nil, fmt.Errorf("load folder: %w", err)
		}
		out.Folder = f
	}

	var err error
	if out.Folders, err = s.ListChildren(ctx, owner, folderID); err != nil {
		return nil, err
	}
	if out.Files, err = s.files.ListCurrentInFolder(ctx, owner, folderID); err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	if out.Breadcrumbs, err = s.ResolvePath(ctx, owner, folderID); err != nil {
		return nil, err
	}
	return out, nil
}
