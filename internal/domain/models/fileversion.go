package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FileVersion is one immutable stored revision of a logical file.
//
// Versions of the same (owner_id, original_name, folder_id) share a
// FileGroupID and are numbered 1..N. Only SharedToken and IsShared change
// after insert.
type FileVersion struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	OwnerID      primitive.ObjectID  `bson:"owner_id" json:"ownerId"`
	OriginalName string              `bson:"original_name" json:"originalName"`
	StorageKey   string              `bson:"storage_key" json:"storageKey"`
	Version      int                 `bson:"version" json:"version"`
	FileGroupID  string              `bson:"file_group_id" json:"fileGroupId"`
	FolderID     *primitive.ObjectID `bson:"folder_id,omitempty" json:"folderId"` // nil = root level
	ContentType  string              `bson:"content_type" json:"contentType"`
	Size         int64               `bson:"size" json:"size"`
	UploadedAt   time.Time           `bson:"uploaded_at" json:"uploadedAt"`
	SharedToken  *string             `bson:"shared_token,omitempty" json:"-"`
	IsShared     bool                `bson:"is_shared" json:"isShared"`

	// Location is the backend URL reported by the blob put. Not persisted.
	Location string `bson:"-" json:"-"`
}

// IsInRoot returns true if the version is at the root level (not in any folder).
func (f *FileVersion) IsInRoot() bool {
	return f.FolderID == nil
}
