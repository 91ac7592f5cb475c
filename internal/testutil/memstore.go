package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/stratadrive/internal/app/system/apperr"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemFolders is an in-memory folder store with the same uniqueness and
// not-found behavior as the MongoDB store.
type MemFolders struct {
	mu      sync.Mutex
	folders map[primitive.ObjectID]models.Folder

	// Err, when set, is returned by every method.
	Err error
}

// NewMemFolders returns an empty MemFolders.
func NewMemFolders() *MemFolders {
	return &MemFolders{folders: make(map[primitive.ObjectID]models.Folder)}
}

func sameParent(a, b *primitive.ObjectID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (m *MemFolders) Create(_ context.Context, owner primitive.ObjectID, name string, parentID *primitive.ObjectID) (*models.Folder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, f := range m.folders {
		if f.OwnerID == owner && f.Name == name && sameParent(f.ParentID, parentID) {
			return nil, apperr.ErrConflict
		}
	}
	var parent *primitive.ObjectID
	if parentID != nil {
		p := *parentID
		parent = &p
	}
	f := models.Folder{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		OwnerID:   owner,
		ParentID:  parent,
		CreatedAt: time.Now().UTC(),
	}
	m.folders[f.ID] = f
	return &f, nil
}

func (m *MemFolders) GetByID(_ context.Context, id primitive.ObjectID) (*models.Folder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	f, ok := m.folders[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &f, nil
}

func (m *MemFolders) GetForOwner(ctx context.Context, owner, id primitive.ObjectID) (*models.Folder, error) {
	f, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.OwnerID != owner {
		return nil, apperr.ErrNotFound
	}
	return f, nil
}

func (m *MemFolders) ListByParent(_ context.Context, owner primitive.ObjectID, parentID *primitive.ObjectID) ([]models.Folder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := []models.Folder{}
	for _, f := range m.folders {
		if f.OwnerID == owner && sameParent(f.ParentID, parentID) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].NameCI != out[j].NameCI {
			return out[i].NameCI < out[j].NameCI
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Put stores f as-is. Tests use it to build trees the service would refuse,
// such as cycles or dangling parents.
func (m *MemFolders) Put(f models.Folder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.folders[f.ID] = f
}

// MemVersions is an in-memory file version store enforcing the same unique
// constraints as the file_versions indexes.
type MemVersions struct {
	mu   sync.Mutex
	rows map[primitive.ObjectID]models.FileVersion

	// InsertErr, when set, is returned by Insert.
	InsertErr error
}

// NewMemVersions returns an empty MemVersions.
func NewMemVersions() *MemVersions {
	return &MemVersions{rows: make(map[primitive.ObjectID]models.FileVersion)}
}

func (m *MemVersions) Insert(_ context.Context, fv *models.FileVersion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertErr != nil {
		return m.InsertErr
	}
	for _, r := range m.rows {
		if r.StorageKey == fv.StorageKey {
			return apperr.ErrConflict
		}
		if r.OwnerID == fv.OwnerID && r.OriginalName == fv.OriginalName &&
			r.Version == fv.Version && sameParent(r.FolderID, fv.FolderID) {
			return apperr.ErrConflict
		}
	}
	if fv.ID.IsZero() {
		fv.ID = primitive.NewObjectID()
	}
	m.rows[fv.ID] = *fv
	return nil
}

func (m *MemVersions) Latest(_ context.Context, owner primitive.ObjectID, folderID *primitive.ObjectID, name string) (*models.FileVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *models.FileVersion
	for _, r := range m.rows {
		if r.OwnerID == owner && r.OriginalName == name && sameParent(r.FolderID, folderID) {
			if best == nil || r.Version > best.Version {
				r := r
				best = &r
			}
		}
	}
	if best == nil {
		return nil, apperr.ErrNotFound
	}
	return best, nil
}

func (m *MemVersions) GetByID(_ context.Context, id primitive.ObjectID) (*models.FileVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &r, nil
}

func (m *MemVersions) GetByStorageKey(_ context.Context, key string) (*models.FileVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.StorageKey == key {
			return &r, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (m *MemVersions) GetByShareToken(_ context.Context, token string) (*models.FileVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if token == "" {
		return nil, apperr.ErrNotFound
	}
	for _, r := range m.rows {
		if r.IsShared && r.SharedToken != nil && *r.SharedToken == token {
			return &r, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (m *MemVersions) ListByGroup(_ context.Context, owner primitive.ObjectID, groupID string) ([]models.FileVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.FileVersion{}
	for _, r := range m.rows {
		if r.OwnerID == owner && r.FileGroupID == groupID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version > out[j].Version })
	return out, nil
}

func (m *MemVersions) ListCurrentInFolder(_ context.Context, owner primitive.ObjectID, folderID *primitive.ObjectID) ([]models.FileVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	latest := map[string]models.FileVersion{}
	for _, r := range m.rows {
		if r.OwnerID != owner || !sameParent(r.FolderID, folderID) {
			continue
		}
		if cur, ok := latest[r.FileGroupID]; !ok || r.Version > cur.Version {
			latest[r.FileGroupID] = r
		}
	}
	out := make([]models.FileVersion, 0, len(latest))
	for _, r := range latest {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].UploadedAt.After(out[j].UploadedAt)
		}
		return strings.Compare(out[i].ID.Hex(), out[j].ID.Hex()) > 0
	})
	return out, nil
}

func (m *MemVersions) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

func (m *MemVersions) SetShare(_ context.Context, id primitive.ObjectID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return apperr.ErrNotFound
	}
	for oid, o := range m.rows {
		if oid != id && o.SharedToken != nil && *o.SharedToken == token {
			return apperr.ErrConflict
		}
	}
	t := token
	r.SharedToken = &t
	r.IsShared = true
	m.rows[id] = r
	return nil
}

func (m *MemVersions) ClearShare(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return apperr.ErrNotFound
	}
	r.SharedToken = nil
	r.IsShared = false
	m.rows[id] = r
	return nil
}

// Len returns the number of stored rows.
func (m *MemVersions) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}
