package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Folder is a node in an owner's folder forest.
// (owner_id, parent_id, name) is unique; folders are never updated in place.
type Folder struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name      string              `bson:"name" json:"name"`
	NameCI    string              `bson:"name_ci" json:"-"` // Case-insensitive for sorting
	OwnerID   primitive.ObjectID  `bson:"owner_id" json:"ownerId"`
	ParentID  *primitive.ObjectID `bson:"parent_id,omitempty" json:"parentId"` // nil = owner's root
	CreatedAt time.Time           `bson:"created_at" json:"createdAt"`
}

// IsRoot returns true if the folder is at the root level.
func (f *Folder) IsRoot() bool {
	return f.ParentID == nil
}

// PathEntry is one breadcrumb step from the root toward a folder.
type PathEntry struct {
	ID   primitive.ObjectID `json:"id"`
	Name string             `json:"name"`
}
