// Package folder provides storage for the folder tree.
package folder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/stratadrive/internal/app/system/apperr"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrDuplicateName is returned when a sibling folder already has the name.
var ErrDuplicateName = fmt.Errorf("a folder with this name already exists here: %w", apperr.ErrConflict)

// Store provides access to the folders collection.
type Store struct {
	c *mongo.Collection
}

// New creates a new folder store.
func New(db *mongo.Database) *Store {
	return &Store{
		c: db.Collection("folders"),
	}
}

// Create inserts a folder. The caller has already trimmed the name and
// checked that the parent belongs to the owner.
func (s *Store) Create(ctx context.Context, owner primitive.ObjectID, name string, parentID *primitive.ObjectID) (*models.Folder, error) {
	folder := models.Folder{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		OwnerID:   owner,
		ParentID:  parentID,
		CreatedAt: time.Now().UTC(),
	}

	if _, err := s.c.InsertOne(ctx, folder); err != nil {
		if wafflemongo.IsDup(err) {
			return nil, ErrDuplicateName
		}
		return nil, err
	}

	return &folder, nil
}

// GetByID retrieves a folder by ID regardless of owner.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Folder, error) {
	var folder models.Folder
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&folder); err != nil {
		return nil, translate(err)
	}
	return &folder, nil
}

// GetForOwner retrieves a folder only if it belongs to owner. A folder owned
// by someone else is reported as apperr.ErrNotFound.
func (s *Store) GetForOwner(ctx context.Context, owner, id primitive.ObjectID) (*models.Folder, error) {
	var folder models.Folder
	if err := s.c.FindOne(ctx, bson.M{"_id": id, "owner_id": owner}).Decode(&folder); err != nil {
		return nil, translate(err)
	}
	return &folder, nil
}

// ListByParent returns the owner's folders directly under parentID, sorted
// by name. Pass nil for parentID to list root folders.
func (s *Store) ListByParent(ctx context.Context, owner primitive.ObjectID, parentID *primitive.ObjectID) ([]models.Folder, error) {
	filter := bson.M{"owner_id": owner, "parent_id": parentID}
	findOpts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "name", Value: 1}})

	cursor, err := s.c.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	folders := []models.Folder{}
	if err := cursor.All(ctx, &folders); err != nil {
		return nil, err
	}

	return folders, nil
}

func translate(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.ErrNotFound
	}
	return err
}
