package blobstore

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"sync"
	"time"
)

// Memory is an in-process Store used by tests and the "memory" storage type
// in development. PutErr and DeleteErr, when set, are returned instead of
// performing the operation.
type Memory struct {
	mu    sync.Mutex
	blobs map[string]memBlob

	PutErr    error
	DeleteErr error
}

type memBlob struct {
	data        []byte
	contentType string
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{blobs: make(map[string]memBlob)}
}

func (m *Memory) Put(ctx context.Context, key string, r io.Reader, contentType string) (PutResult, error) {
	if err := ctx.Err(); err != nil {
		return PutResult{}, err
	}
	if m.PutErr != nil {
		return PutResult{}, m.PutErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return PutResult{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[key]; ok {
		return PutResult{}, ErrExists
	}
	m.blobs[key] = memBlob{data: data, contentType: contentType}
	return PutResult{Key: key, Location: "memory://" + key}, nil
}

func (m *Memory) Get(ctx context.Context, key string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &Object{Body: io.NopCloser(bytes.NewReader(b.data)), ContentType: b.contentType}, nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
	return nil
}

func (m *Memory) Sign(_ context.Context, key string, ttl time.Duration) (string, error) {
	return "memory://" + key + "?expires=" + url.QueryEscape(time.Now().Add(ttl).UTC().Format(time.RFC3339)), nil
}

// Has reports whether a blob is stored under key.
func (m *Memory) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[key]
	return ok
}

// Len returns the number of stored blobs.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}
