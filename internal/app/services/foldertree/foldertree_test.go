package foldertree

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/stratadrive/internal/app/system/apperr"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/dalemusser/stratadrive/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newService() (*Service, *testutil.MemFolders, *testutil.MemVersions) {
	folders := testutil.NewMemFolders()
	versions := testutil.NewMemVersions()
	return New(folders, versions, zap.NewNop()), folders, versions
}

func TestCreateFolder(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()
	owner := primitive.NewObjectID()

	f, err := svc.CreateFolder(ctx, owner, "  Docs  ", nil)
	if err != nil {
		t.Fatalf("CreateFolder() error = %v", err)
	}
	if f.Name != "Docs" {
		t.Errorf("Name = %q, want %q", f.Name, "Docs")
	}
	if f.OwnerID != owner {
		t.Errorf("OwnerID = %v, want %v", f.OwnerID, owner)
	}
	if !f.IsRoot() {
		t.Error("folder should be at the root")
	}
}

func TestCreateFolder_InvalidName(t *testing.T) {
	svc, _, _ := newService()
	owner := primitive.NewObjectID()

	for _, name := range []string{"", "   ", "\t\n", strings.Repeat("x", MaxNameLength+1)} {
		_, err := svc.CreateFolder(context.Background(), owner, name, nil)
		if !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("name %q: error = %v, want ErrValidation", name, err)
			continue
		}
		if _, ok := apperr.Fields(err)["name"]; !ok {
			t.Errorf("name %q: fields = %v, want a name entry", name, apperr.Fields(err))
		}
	}
}

func TestCreateFolder_Duplicate(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()
	owner := primitive.NewObjectID()

	if _, err := svc.CreateFolder(ctx, owner, "Docs", nil); err != nil {
		t.Fatalf("CreateFolder() error = %v", err)
	}

	if _, err := svc.CreateFolder(ctx, owner, "Docs", nil); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("duplicate: error = %v, want ErrConflict", err)
	}

	// Another owner may reuse the name.
	if _, err := svc.CreateFolder(ctx, primitive.NewObjectID(), "Docs", nil); err != nil {
		t.Errorf("other owner: error = %v", err)
	}
}

func TestCreateFolder_ParentMustBeOwned(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()
	owner := primitive.NewObjectID()
	other := primitive.NewObjectID()

	theirs, err := svc.CreateFolder(ctx, other, "Theirs", nil)
	if err != nil {
		t.Fatalf("CreateFolder() error = %v", err)
	}

	if _, err := svc.CreateFolder(ctx, owner, "Mine", &theirs.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("foreign parent: error = %v, want ErrNotFound", err)
	}

	missing := primitive.NewObjectID()
	if _, err := svc.CreateFolder(ctx, owner, "Mine", &missing); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing parent: error = %v, want ErrNotFound", err)
	}

	mine, err := svc.CreateFolder(ctx, owner, "Parent", nil)
	if err != nil {
		t.Fatalf("CreateFolder(Parent) error = %v", err)
	}
	child, err := svc.CreateFolder(ctx, owner, "Child", &mine.ID)
	if err != nil {
		t.Fatalf("CreateFolder(Child) error = %v", err)
	}
	if child.ParentID == nil || *child.ParentID != mine.ID {
		t.Errorf("ParentID = %v, want %v", child.ParentID, mine.ID)
	}
}

func TestCreateFolder_StoreError(t *testing.T) {
	svc, folders, _ := newService()
	folders.Err = errors.New("boom")

	_, err := svc.CreateFolder(context.Background(), primitive.NewObjectID(), "Docs", nil)
	if err == nil {
		t.Fatal("CreateFolder() expected error, got nil")
	}
	if errors.Is(err, apperr.ErrConflict) {
		t.Errorf("store failure reported as conflict: %v", err)
	}
}

func TestListChildren(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()
	owner := primitive.NewObjectID()

	root, _ := svc.CreateFolder(ctx, owner, "Root", nil)
	_, _ = svc.CreateFolder(ctx, owner, "b", &root.ID)
	_, _ = svc.CreateFolder(ctx, owner, "A", &root.ID)
	grand, _ := svc.CreateFolder(ctx, owner, "c", &root.ID)
	_, _ = svc.CreateFolder(ctx, owner, "deep", &grand.ID)

	children, err := svc.ListChildren(ctx, owner, &root.ID)
	if err != nil {
		t.Fatalf("ListChildren() error = %v", err)
	}
	var names []string
	for _, c := range children {
		names = append(names, c.Name)
	}
	if want := []string{"A", "b", "c"}; !reflect.DeepEqual(names, want) {
		t.Errorf("children = %v, want %v", names, want)
	}

	roots, err := svc.ListChildren(ctx, owner, nil)
	if err != nil {
		t.Fatalf("ListChildren(root) error = %v", err)
	}
	if len(roots) != 1 {
		t.Errorf("len(roots) = %d, want 1", len(roots))
	}
}

func TestVerifyOwnership(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()
	owner := primitive.NewObjectID()

	f, _ := svc.CreateFolder(ctx, owner, "Docs", nil)

	if err := svc.VerifyOwnership(ctx, owner, nil); err != nil {
		t.Errorf("root: error = %v", err)
	}
	if err := svc.VerifyOwnership(ctx, owner, &f.ID); err != nil {
		t.Errorf("owned: error = %v", err)
	}
	if err := svc.VerifyOwnership(ctx, primitive.NewObjectID(), &f.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("foreign: error = %v, want ErrNotFound", err)
	}
	missing := primitive.NewObjectID()
	if err := svc.VerifyOwnership(ctx, owner, &missing); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing: error = %v, want ErrNotFound", err)
	}
}

func TestResolvePath(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()
	owner := primitive.NewObjectID()

	path, err := svc.ResolvePath(ctx, owner, nil)
	if err != nil {
		t.Fatalf("ResolvePath(root) error = %v", err)
	}
	if path == nil || len(path) != 0 {
		t.Errorf("root path = %#v, want an empty non-nil slice", path)
	}

	a, _ := svc.CreateFolder(ctx, owner, "a", nil)
	b, _ := svc.CreateFolder(ctx, owner, "b", &a.ID)
	c, _ := svc.CreateFolder(ctx, owner, "c", &b.ID)

	path, err = svc.ResolvePath(ctx, owner, &c.ID)
	if err != nil {
		t.Fatalf("ResolvePath(c) error = %v", err)
	}
	want := []models.PathEntry{
		{ID: a.ID, Name: "a"},
		{ID: b.ID, Name: "b"},
		{ID: c.ID, Name: "c"},
	}
	if !reflect.DeepEqual(path, want) {
		t.Errorf("ResolvePath(c) = %+v, want %+v", path, want)
	}

	path, err = svc.ResolvePath(ctx, owner, &a.ID)
	if err != nil {
		t.Fatalf("ResolvePath(a) error = %v", err)
	}
	if want := []models.PathEntry{{ID: a.ID, Name: "a"}}; !reflect.DeepEqual(path, want) {
		t.Errorf("ResolvePath(a) = %+v, want %+v", path, want)
	}
}

func TestResolvePath_MissingAncestorStopsWalk(t *testing.T) {
	svc, folders, _ := newService()
	ctx := context.Background()
	owner := primitive.NewObjectID()

	gone := primitive.NewObjectID()
	mid := models.Folder{ID: primitive.NewObjectID(), Name: "mid", OwnerID: owner, ParentID: &gone, CreatedAt: time.Now()}
	leaf := models.Folder{ID: primitive.NewObjectID(), Name: "leaf", OwnerID: owner, ParentID: &mid.ID, CreatedAt: time.Now()}
	folders.Put(mid)
	folders.Put(leaf)

	path, err := svc.ResolvePath(ctx, owner, &leaf.ID)
	if err != nil {
		t.Fatalf("ResolvePath() error = %v", err)
	}
	want := []models.PathEntry{{ID: mid.ID, Name: "mid"}, {ID: leaf.ID, Name: "leaf"}}
	if !reflect.DeepEqual(path, want) {
		t.Errorf("ResolvePath() = %+v, want %+v", path, want)
	}
}

func TestResolvePath_CycleTerminates(t *testing.T) {
	svc, folders, _ := newService()
	owner := primitive.NewObjectID()

	aID, bID := primitive.NewObjectID(), primitive.NewObjectID()
	folders.Put(models.Folder{ID: aID, Name: "a", OwnerID: owner, ParentID: &bID})
	folders.Put(models.Folder{ID: bID, Name: "b", OwnerID: owner, ParentID: &aID})

	path, err := svc.ResolvePath(context.Background(), owner, &aID)
	if err != nil {
		t.Fatalf("ResolvePath() error = %v", err)
	}
	if len(path) != 2 {
		t.Errorf("len(path) = %d, want 2", len(path))
	}
}

func TestResolvePath_DepthBound(t *testing.T) {
	svc, folders, _ := newService()
	owner := primitive.NewObjectID()

	var parent *primitive.ObjectID
	var last primitive.ObjectID
	for i := 0; i < MaxDepth+10; i++ {
		f := models.Folder{ID: primitive.NewObjectID(), Name: "f", OwnerID: owner, ParentID: parent}
		folders.Put(f)
		last = f.ID
		id := f.ID
		parent = &id
	}

	path, err := svc.ResolvePath(context.Background(), owner, &last)
	if err != nil {
		t.Fatalf("ResolvePath() error = %v", err)
	}
	if len(path) != MaxDepth {
		t.Fatalf("len(path) = %d, want %d", len(path), MaxDepth)
	}
	if path[len(path)-1].ID != last {
		t.Errorf("last entry = %v, want %v", path[len(path)-1].ID, last)
	}
}

func TestContents(t *testing.T) {
	svc, _, versions := newService()
	ctx := context.Background()
	owner := primitive.NewObjectID()

	docs, _ := svc.CreateFolder(ctx, owner, "Docs", nil)
	_, _ = svc.CreateFolder(ctx, owner, "Sub", &docs.ID)

	now := time.Now()
	rows := []*models.FileVersion{
		{
			OwnerID: owner, OriginalName: "a.txt", StorageKey: "g/a_v1.txt", Version: 1,
			FileGroupID: "g", FolderID: &docs.ID, UploadedAt: now,
		},
		{
			OwnerID: owner, OriginalName: "a.txt", StorageKey: "g/a_v2.txt", Version: 2,
			FileGroupID: "g", FolderID: &docs.ID, UploadedAt: now.Add(time.Second),
		},
	}
	for _, fv := range rows {
		if err := versions.Insert(ctx, fv); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	c, err := svc.Contents(ctx, owner, &docs.ID)
	if err != nil {
		t.Fatalf("Contents() error = %v", err)
	}
	if c.Folder == nil || c.Folder.Name != "Docs" {
		t.Errorf("Folder = %+v, want Docs", c.Folder)
	}
	if len(c.Folders) != 1 || c.Folders[0].Name != "Sub" {
		t.Errorf("Folders = %+v, want only Sub", c.Folders)
	}
	if len(c.Files) != 1 || c.Files[0].Version != 2 {
		t.Errorf("Files = %+v, want only v2", c.Files)
	}
	if want := []models.PathEntry{{ID: docs.ID, Name: "Docs"}}; !reflect.DeepEqual(c.Breadcrumbs, want) {
		t.Errorf("Breadcrumbs = %+v, want %+v", c.Breadcrumbs, want)
	}

	root, err := svc.Contents(ctx, owner, nil)
	if err != nil {
		t.Fatalf("Contents(root) error = %v", err)
	}
	if root.Folder != nil {
		t.Errorf("root Folder = %+v, want nil", root.Folder)
	}
	if len(root.Folders) != 1 {
		t.Errorf("len(root.Folders) = %d, want 1", len(root.Folders))
	}
	if len(root.Files) != 0 || len(root.Breadcrumbs) != 0 {
		t.Errorf("root Files = %+v, Breadcrumbs = %+v, want empty", root.Files, root.Breadcrumbs)
	}

	if _, err := svc.Contents(ctx, primitive.NewObjectID(), &docs.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("foreign folder: error = %v, want ErrNotFound", err)
	}
}
