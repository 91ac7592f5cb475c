// Package fileversion provides storage for file version records.
package fileversion

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/stratadrive/internal/app/system/apperr"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrVersionTaken is returned when another upload already recorded the
// same version number or storage key.
var ErrVersionTaken = fmt.Errorf("version already recorded: %w", apperr.ErrConflict)

// Store provides access to the file_versions collection.
type Store struct {
	c *mongo.Collection
}

// New creates a new file version store.
func New(db *mongo.Database) *Store {
	return &Store{
		c: db.Collection("file_versions"),
	}
}

// Insert records a version. A zero ID is assigned.
func (s *Store) Insert(ctx context.Context, fv *models.FileVersion) error {
	if fv.ID.IsZero() {
		fv.ID = primitive.NewObjectID()
	}
	if _, err := s.c.InsertOne(ctx, fv); err != nil {
		if wafflemongo.IsDup(err) {
			return ErrVersionTaken
		}
		return err
	}
	return nil
}

// Latest returns the highest version of name in folderID for owner, or
// apperr.ErrNotFound if the name has never been uploaded there.
func (s *Store) Latest(ctx context.Context, owner primitive.ObjectID, folderID *primitive.ObjectID, name string) (*models.FileVersion, error) {
	filter := bson.M{
		"owner_id":      owner,
		"folder_id":     folderID,
		"original_name": name,
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "version", Value: -1}})

	var fv models.FileVersion
	if err := s.c.FindOne(ctx, filter, opts).Decode(&fv); err != nil {
		return nil, translate(err)
	}
	return &fv, nil
}

// GetByID retrieves a version by ID regardless of owner.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.FileVersion, error) {
	var fv models.FileVersion
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&fv); err != nil {
		return nil, translate(err)
	}
	return &fv, nil
}

// GetByStorageKey retrieves a version by its blob key regardless of owner.
func (s *Store) GetByStorageKey(ctx context.Context, key string) (*models.FileVersion, error) {
	var fv models.FileVersion
	if err := s.c.FindOne(ctx, bson.M{"storage_key": key}).Decode(&fv); err != nil {
		return nil, translate(err)
	}
	return &fv, nil
}

// GetByShareToken retrieves the shared version carrying token.
func (s *Store) GetByShareToken(ctx context.Context, token string) (*models.FileVersion, error) {
	if token == "" {
		return nil, apperr.ErrNotFound
	}
	var fv models.FileVersion
	if err := s.c.FindOne(ctx, bson.M{"shared_token": token, "is_shared": true}).Decode(&fv); err != nil {
		return nil, translate(err)
	}
	return &fv, nil
}

// ListByGroup returns every version in a group owned by owner, newest first.
func (s *Store) ListByGroup(ctx context.Context, owner primitive.ObjectID, groupID string) ([]models.FileVersion, error) {
	filter := bson.M{"owner_id": owner, "file_group_id": groupID}
	opts := options.Find().SetSort(bson.D{{Key: "version", Value: -1}})

	cursor, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	versions := []models.FileVersion{}
	if err := cursor.All(ctx, &versions); err != nil {
		return nil, err
	}
	return versions, nil
}

// ListCurrentInFolder returns the highest version of each group in
// folderID, most recently uploaded first. Pass nil for the root level.
func (s *Store) ListCurrentInFolder(ctx context.Context, owner primitive.ObjectID, folderID *primitive.ObjectID) ([]models.FileVersion, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"owner_id": owner, "folder_id": folderID}}},
		{{Key: "$sort", Value: bson.D{{Key: "file_group_id", Value: 1}, {Key: "version", Value: -1}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$file_group_id"},
			{Key: "doc", Value: bson.M{"$first": "$$ROOT"}},
		}}},
		{{Key: "$replaceRoot", Value: bson.M{"newRoot": "$doc"}}},
		{{Key: "$sort", Value: bson.D{{Key: "uploaded_at", Value: -1}, {Key: "_id", Value: -1}}}},
	}

	cursor, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	versions := []models.FileVersion{}
	if err := cursor.All(ctx, &versions); err != nil {
		return nil, err
	}
	return versions, nil
}

// Delete removes a version record. Deleting a missing record is not an error.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// SetShare marks a version shared under token, replacing any earlier token.
func (s *Store) SetShare(ctx context.Context, id primitive.ObjectID, token string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"shared_token": token, "is_shared": true}},
	)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return fmt.Errorf("share token collision: %w", apperr.ErrConflict)
		}
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// ClearShare revokes a version's share. Clearing an unshared version is a no-op.
func (s *Store) ClearShare(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$set":   bson.M{"is_shared": false},
			"$unset": bson.M{"shared_token": ""},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func translate(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.ErrNotFound
	}
	return err
}
