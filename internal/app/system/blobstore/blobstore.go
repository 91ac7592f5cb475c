// Package blobstore is the object-storage boundary for file version content.
//
// Keys are opaque to the store. Put is create-only: writing a key that already
// holds a blob fails with ErrExists, so a losing upload can never overwrite
// the winner's content.
package blobstore

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrNotFound is returned when no blob exists under the key.
	ErrNotFound = errors.New("blob not found")
	// ErrExists is returned by Put when the key is already taken.
	ErrExists = errors.New("blob already exists")
)

// PutResult describes a stored blob.
type PutResult struct {
	Key      string
	Location string // backend URL hint; not necessarily publicly readable
}

// Object is an open blob. Callers must close Body.
type Object struct {
	Body        io.ReadCloser
	ContentType string
}

// Store is implemented by each storage backend.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (PutResult, error)
	Get(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
	Sign(ctx context.Context, key string, ttl time.Duration) (string, error)
}
