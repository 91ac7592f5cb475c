// Package sharing issues and revokes public links to single file versions.
//
// Sharing is per version row. Every failure to resolve a token looks the
// same to the caller.
package sharing

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/dalemusser/stratadrive/internal/app/services/catalog"
	"github.com/dalemusser/stratadrive/internal/app/system/apperr"
	"github.com/dalemusser/stratadrive/internal/app/system/blobstore"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// TokenBytes is the share token entropy (128 bits).
const TokenBytes = 16

// VersionStore is the persistence the ledger needs.
type VersionStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.FileVersion, error)
	GetByShareToken(ctx context.Context, token string) (*models.FileVersion, error)
	SetShare(ctx context.Context, id primitive.ObjectID, token string) error
	ClearShare(ctx context.Context, id primitive.ObjectID) error
}

type Service struct {
	versions VersionStore
	blobs    blobstore.Store
	logger   *zap.Logger

	newToken func() (string, error)
}

func New(versions VersionStore, blobs blobstore.Store, logger *zap.Logger) *Service {
	return &Service{
		versions: versions,
		blobs:    blobs,
		logger:   logger,
		newToken: NewToken,
	}
}

// NewToken returns TokenBytes random bytes as lowercase hex.
func NewToken() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (s *Service) owned(ctx context.Context, owner, id primitive.ObjectID) (*models.FileVersion, error) {
	fv, err := s.versions.GetByID(ctx, id)
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

// CreateShareLink shares one version and returns its token. Sharing an
// already shared version replaces the token, so the old link stops working.
func (s *Service) CreateShareLink(ctx context.Context, owner, versionID primitive.ObjectID) (string, error) {
	fv, err := s.owned(ctx, owner, versionID)
	if err != nil {
		return "", err
	}

	token, err := s.newToken()
	if err != nil {
		return "", fmt.Errorf("generate share token: %w", err)
	}
	if err := s.versions.SetShare(ctx, fv.ID, token); err != nil {
		return "", fmt.Errorf("save share token: %w", err)
	}

	s.logger.Info("share link created",
		zap.String("owner_id", owner.Hex()),
		zap.String("version_id", fv.ID.Hex()))
	return token, nil
}

// ResolveShare returns the version currently shared under token.
func (s *Service) ResolveShare(ctx context.Context, token string) (*models.FileVersion, error) {
	if token == "" {
		return nil, apperr.ErrNotFound
	}
	fv, err := s.versions.GetByShareToken(ctx, token)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("resolve share: %w", err)
	}
	return fv, nil
}

// RevokeShare stops sharing a version. Revoking an unshared version succeeds.
func (s *Service) RevokeShare(ctx context.Context, owner, versionID primitive.ObjectID) error {
	fv, err := s.owned(ctx, owner, versionID)
	if err != nil {
		return err
	}
	if !fv.IsShared && fv.SharedToken == nil {
		return nil
	}
	if err := s.versions.ClearShare(ctx, fv.ID); err != nil {
		return fmt.Errorf("clear share: %w", err)
	}

	s.logger.Info("share link revoked",
		zap.String("owner_id", owner.Hex()),
		zap.String("version_id", fv.ID.Hex()))
	return nil
}

// OpenShare resolves token and opens the shared blob. The caller must close
// the object's Body.
func (s *Service) OpenShare(ctx context.Context, token string) (*models.FileVersion, *blobstore.Object, error) {
	fv, err := s.ResolveShare(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	obj, err := catalog.OpenBlob(ctx, s.blobs, s.logger, fv)
	if err != nil {
		return nil, nil, err
	}
	return fv, obj, nil
}
