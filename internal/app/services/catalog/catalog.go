// Package catalog records immutable, numbered versions of uploaded files.
//
// Blob content is written before the metadata row and deleted before it, so
// a row never points at a blob that was never stored. The reverse window
// (a blob without a row) is logged and left for manual cleanup.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/stratadrive/internal/app/system/apperr"
	"github.com/dalemusser/stratadrive/internal/app/system/blobstore"
	"github.com/dalemusser/stratadrive/internal/app/system/normalize"
	"github.com/dalemusser/stratadrive/internal/app/system/timeouts"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	// DefaultSignTTL is used when SignVersion is called with ttl <= 0.
	DefaultSignTTL = 10 * time.Minute
	// MinSignTTL and MaxSignTTL bound signed URL lifetimes.
	MinSignTTL = time.Second
	MaxSignTTL = 7 * 24 * time.Hour
)

// VersionStore is the persistence the catalog needs.
type VersionStore interface {
	Insert(ctx context.Context, fv *models.FileVersion) error
	Latest(ctx context.Context, owner primitive.ObjectID, folderID *primitive.ObjectID, name string) (*models.FileVersion, error)
	GetByStorageKey(ctx context.Context, key string) (*models.FileVersion, error)
	ListByGroup(ctx context.Context, owner primitive.ObjectID, groupID string) ([]models.FileVersion, error)
	ListCurrentInFolder(ctx context.Context, owner primitive.ObjectID, folderID *primitive.ObjectID) ([]models.FileVersion, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// FolderVerifier confirms a target folder belongs to the owner.
type FolderVerifier interface {
	VerifyOwnership(ctx context.Context, owner primitive.ObjectID, folderID *primitive.ObjectID) error
}

// Upload describes one incoming file.
type Upload struct {
	Owner       primitive.ObjectID
	Name        string
	FolderID    *primitive.ObjectID
	ContentType string
	Size        int64
	Body        io.Reader
}

type Service struct {
	versions VersionStore
	blobs    blobstore.Store
	folders  FolderVerifier
	logger   *zap.Logger

	newGroupID func() string
	now        func() time.Time
}

func New(versions VersionStore, blobs blobstore.Store, folders FolderVerifier, logger *zap.Logger) *Service {
	return &Service{
		versions:   versions,
		blobs:      blobs,
		folders:    folders,
		logger:     logger,
		newGroupID: uuid.NewString,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SplitName splits a file name into base and extension at the last dot.
// A name whose only dot is the leading one (".env") has no extension.
func SplitName(name string) (base, ext string) {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 {
		return name, ""
	}
	return name[:i], name[i+1:]
}

// LeafName is the versioned object name: {base}_v{n}.{ext}, without the
// trailing dot when ext is empty.
func LeafName(name string, version int) string {
	base, ext := SplitName(name)
	leaf := base + "_v" + strconv.Itoa(version)
	if ext != "" {
		leaf += "." + ext
	}
	return leaf
}

// StorageKey places a version's leaf under its group so keys from different
// owners and folders never meet.
func StorageKey(groupID, name string, version int) string {
	return groupID + "/" + LeafName(name, version)
}

// CreateVersion stores the next version of in.Name in in.FolderID.
func (s *Service) CreateVersion(ctx context.Context, in Upload) (*models.FileVersion, error) {
	name := normalize.FileName(in.Name)
	if name == "" {
		return nil, apperr.Invalid("file", "A file is required.")
	}
	if in.Body == nil {
		return nil, apperr.Invalid("file", "A file is required.")
	}
	if err := s.folders.VerifyOwnership(ctx, in.Owner, in.FolderID); err != nil {
		return nil, err
	}

	version, groupID := 1, ""
	latest, err := s.versions.Latest(ctx, in.Owner, in.FolderID, name)
	switch {
	case err == nil:
		version, groupID = latest.Version+1, latest.FileGroupID
	case errors.Is(err, apperr.ErrNotFound):
		groupID = s.newGroupID()
	default:
		return nil, fmt.Errorf("latest version: %w", err)
	}

	contentType := in.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := StorageKey(groupID, name, version)

	bctx, cancel := timeouts.WithTimeout(ctx, timeouts.Blob(), s.logger, "blob put")
	put, err := s.blobs.Put(bctx, key, in.Body, contentType)
	cancel()
	if err != nil {
		if errors.Is(err, blobstore.ErrExists) {
			return nil, fmt.Errorf("version %d of %q is already being written: %w", version, name, apperr.ErrConflict)
		}
		s.logger.Error("blob put failed", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", apperr.ErrUploadFailed, err)
	}

	fv := &models.FileVersion{
		OwnerID:      in.Owner,
		OriginalName: name,
		StorageKey:   key,
		Version:      version,
		FileGroupID:  groupID,
		FolderID:     in.FolderID,
		ContentType:  contentType,
		Size:         in.Size,
		UploadedAt:   s.now(),
		Location:     put.Location,
	}
	if err := s.versions.Insert(ctx, fv); err != nil {
		s.logger.Warn("orphaned blob after failed insert",
			zap.String("key", key),
			zap.String("owner_id", in.Owner.Hex()),
			zap.Error(err))
		if errors.Is(err, apperr.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("record version: %w", err)
	}

	s.logger.Info("file version created",
		zap.String("owner_id", in.Owner.Hex()),
		zap.String("file_group_id", groupID),
		zap.Int("version", version),
		zap.Int64("size", in.Size))
	return fv, nil
}

// ListVersions returns every version in a group, newest first.
func (s *Service) ListVersions(ctx context.Context, owner primitive.ObjectID, groupID string) ([]models.FileVersion, error) {
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return nil, apperr.ErrNotFound
	}
	versions, err := s.versions.ListByGroup(ctx, owner, groupID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	if len(versions) == 0 {
		return nil, apperr.ErrNotFound
	}
	return versions, nil
}

// ListCurrentInFolder returns the latest version of each file in folderID.
func (s *Service) ListCurrentInFolder(ctx context.Context, owner primitive.ObjectID, folderID *primitive.ObjectID) ([]models.FileVersion, error) {
	if err := s.folders.VerifyOwnership(ctx, owner, folderID); err != nil {
		return nil, err
	}
	files, err := s.versions.ListCurrentInFolder(ctx, owner, folderID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return files, nil
}

// owned loads the row for key and checks it belongs to owner.
func (s *Service) owned(ctx context.Context, owner primitive.ObjectID, key string) (*models.FileVersion, error) {
	key = normalize.StorageKey(key)
	if key == "" {
		return nil, apperr.ErrNotFound
	}
	fv, err := s.versions.GetByStorageKey(ctx, key)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("load version: %w", err)
	}
	if fv.OwnerID != owner {
		return nil, apperr.ErrUnauthorized
	}
	return fv, nil
}

// DeleteVersion removes one version's blob and then its row. Other versions
// keep their numbers.
func (s *Service) DeleteVersion(ctx context.Context, owner primitive.ObjectID, key string) error {
	fv, err := s.owned(ctx, owner, key)
	if err != nil {
		return err
	}

	bctx, cancel := timeouts.WithTimeout(ctx, timeouts.Blob(), s.logger, "blob delete")
	err = s.blobs.Delete(bctx, fv.StorageKey)
	cancel()
	if err != nil && !errors.Is(err, blobstore.ErrNotFound) {
		s.logger.Error("blob delete failed", zap.String("key", fv.StorageKey), zap.Error(err))
		return fmt.Errorf("%w: %v", apperr.ErrStorageUnavailable, err)
	}

	if err := s.versions.Delete(ctx, fv.ID); err != nil {
		return fmt.Errorf("delete version: %w", err)
	}

	s.logger.Info("file version deleted",
		zap.String("owner_id", owner.Hex()),
		zap.String("file_group_id", fv.FileGroupID),
		zap.Int("version", fv.Version))
	return nil
}

// OpenVersion returns the row and an open blob for an owned version. The
// caller must close the object's Body.
func (s *Service) OpenVersion(ctx context.Context, owner primitive.ObjectID, key string) (*models.FileVersion, *blobstore.Object, error) {
	fv, err := s.owned(ctx, owner, key)
	if err != nil {
		return nil, nil, err
	}
	obj, err := OpenBlob(ctx, s.blobs, s.logger, fv)
	if err != nil {
		return nil, nil, err
	}
	return fv, obj, nil
}

// SignVersion returns a temporary URL for an owned version along with the
// lifetime actually granted.
func (s *Service) SignVersion(ctx context.Context, owner primitive.ObjectID, key string, ttl time.Duration) (string, time.Duration, error) {
	fv, err := s.owned(ctx, owner, key)
	if err != nil {
		return "", 0, err
	}
	ttl = ClampTTL(ttl)

	bctx, cancel := timeouts.WithTimeout(ctx, timeouts.Blob(), s.logger, "blob sign")
	defer cancel()
	url, err := s.blobs.Sign(bctx, fv.StorageKey, ttl)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", apperr.ErrStorageUnavailable, err)
	}
	return url, ttl, nil
}

// ClampTTL applies the default and bounds to a requested signed URL lifetime.
func ClampTTL(ttl time.Duration) time.Duration {
	switch {
	case ttl <= 0:
		return DefaultSignTTL
	case ttl < MinSignTTL:
		return MinSignTTL
	case ttl > MaxSignTTL:
		return MaxSignTTL
	}
	return ttl
}

// OpenBlob opens fv's content under the blob timeout. The timeout stays in
// force until the returned Body is closed. The row's content type wins over
// whatever the backend reports.
func OpenBlob(ctx context.Context, blobs blobstore.Store, logger *zap.Logger, fv *models.FileVersion) (*blobstore.Object, error) {
	bctx, cancel := timeouts.WithTimeout(ctx, timeouts.Blob(), logger, "blob get")
	obj, err := blobs.Get(bctx, fv.StorageKey)
	if err != nil {
		cancel()
		if errors.Is(err, blobstore.ErrNotFound) {
			logger.Warn("version row without blob", zap.String("key", fv.StorageKey))
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", apperr.ErrStorageUnavailable, err)
	}
	if fv.ContentType != "" {
		obj.ContentType = fv.ContentType
	}
	obj.Body = &cancelOnClose{ReadCloser: obj.Body, cancel: cancel}
	return obj, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
