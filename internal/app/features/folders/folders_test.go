package folders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	errorsfeature "github.com/dalemusser/stratadrive/internal/app/features/errors"
	"github.com/dalemusser/stratadrive/internal/app/services/foldertree"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/dalemusser/stratadrive/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newRouter(t *testing.T) (http.Handler, *testutil.MemFolders, func(*http.Request) *http.Request) {
	t.Helper()
	folders := testutil.NewMemFolders()
	tree := foldertree.New(folders, testutil.NewMemVersions(), zap.NewNop())
	h := NewHandler(tree, errorsfeature.NewErrorLogger(zap.NewNop()), zap.NewNop())

	gw := testutil.NewGateway(t)
	user := testutil.TestUser()
	sign := func(r *http.Request) *http.Request {
		return testutil.Bearer(t, gw, r, user)
	}
	return Routes(h, gw), folders, sign
}

func do(router http.Handler, r *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, r)
	return rec
}

func decodeJSON(t *testing.T, rec *testutil.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func postJSON(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func TestRoutes_RequireCredential(t *testing.T) {
	router, _, _ := newRouter(t)

	rec := do(router, httptest.NewRequest(http.MethodGet, "/", nil))
	rec.AssertStatus(t, http.StatusUnauthorized)

	rec = do(router, postJSON(`{"name":"Docs"}`))
	rec.AssertStatus(t, http.StatusUnauthorized)
}

func TestCreate(t *testing.T) {
	router, _, sign := newRouter(t)

	rec := do(router, sign(postJSON(`{"name":"Docs"}`)))
	rec.AssertStatus(t, http.StatusCreated)

	var out struct {
		Folder models.Folder `json:"folder"`
	}
	decodeJSON(t, rec, &out)
	if out.Folder.Name != "Docs" {
		t.Errorf("Name = %q, want %q", out.Folder.Name, "Docs")
	}
	if out.Folder.ParentID != nil {
		t.Errorf("ParentID = %v, want nil", out.Folder.ParentID)
	}
	if out.Folder.ID.IsZero() {
		t.Error("ID should not be zero")
	}
}

func TestCreate_Nested(t *testing.T) {
	router, _, sign := newRouter(t)

	rec := do(router, sign(postJSON(`{"name":"Docs"}`)))
	rec.AssertStatus(t, http.StatusCreated)
	var parent struct {
		Folder models.Folder `json:"folder"`
	}
	decodeJSON(t, rec, &parent)

	rec = do(router, sign(postJSON(`{"name":"2024","parentId":"`+parent.Folder.ID.Hex()+`"}`)))
	rec.AssertStatus(t, http.StatusCreated)
	var child struct {
		Folder models.Folder `json:"folder"`
	}
	decodeJSON(t, rec, &child)
	if child.Folder.ParentID == nil || *child.Folder.ParentID != parent.Folder.ID {
		t.Errorf("ParentID = %v, want %v", child.Folder.ParentID, parent.Folder.ID)
	}
}

func TestCreate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		want   string
	}{
		{"blank name", `{"name":"   "}`, http.StatusBadRequest, `"name"`},
		{"bad json", `{"name":`, http.StatusBadRequest, "invalid JSON payload"},
		{"bad parent id", `{"name":"x","parentId":"nope"}`, http.StatusBadRequest, `"parentId"`},
		{"unknown parent", `{"name":"x","parentId":"` + primitive.NewObjectID().Hex() + `"}`, http.StatusNotFound, "not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _, sign := newRouter(t)
			rec := do(router, sign(postJSON(tt.body)))
			rec.AssertStatus(t, tt.status)
			rec.AssertContains(t, tt.want)
		})
	}
}

func TestCreate_Duplicate(t *testing.T) {
	router, _, sign := newRouter(t)

	do(router, sign(postJSON(`{"name":"Docs"}`))).AssertStatus(t, http.StatusCreated)
	do(router, sign(postJSON(`{"name":"Docs"}`))).AssertStatus(t, http.StatusConflict)
}

func TestCreate_ForeignParent(t *testing.T) {
	router, folders, sign := newRouter(t)

	other, err := folders.Create(context.Background(), primitive.NewObjectID(), "Theirs", nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	rec := do(router, sign(postJSON(`{"name":"x","parentId":"`+other.ID.Hex()+`"}`)))
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestContents_Root(t *testing.T) {
	router, _, sign := newRouter(t)

	do(router, sign(postJSON(`{"name":"b"}`))).AssertStatus(t, http.StatusCreated)
	do(router, sign(postJSON(`{"name":"A"}`))).AssertStatus(t, http.StatusCreated)

	rec := do(router, sign(httptest.NewRequest(http.MethodGet, "/", nil)))
	rec.AssertStatus(t, http.StatusOK)

	var out struct {
		Folder      *models.Folder       `json:"folder"`
		Folders     []models.Folder      `json:"folders"`
		Files       []models.FileVersion `json:"files"`
		Breadcrumbs []models.PathEntry   `json:"breadcrumbs"`
	}
	decodeJSON(t, rec, &out)
	if out.Folder != nil {
		t.Errorf("Folder = %+v, want nil at the root", out.Folder)
	}
	if len(out.Folders) != 2 {
		t.Fatalf("len(Folders) = %d, want 2", len(out.Folders))
	}
	if out.Folders[0].Name != "A" || out.Folders[1].Name != "b" {
		t.Errorf("Folders = %q, %q, want A, b", out.Folders[0].Name, out.Folders[1].Name)
	}
	if len(out.Files) != 0 || len(out.Breadcrumbs) != 0 {
		t.Errorf("Files = %+v, Breadcrumbs = %+v, want empty", out.Files, out.Breadcrumbs)
	}
}

func TestContents_Folder(t *testing.T) {
	router, _, sign := newRouter(t)

	rec := do(router, sign(postJSON(`{"name":"Docs"}`)))
	var created struct {
		Folder models.Folder `json:"folder"`
	}
	decodeJSON(t, rec, &created)

	rec = do(router, sign(httptest.NewRequest(http.MethodGet, "/"+created.Folder.ID.Hex(), nil)))
	rec.AssertStatus(t, http.StatusOK)

	var out struct {
		Folder      *models.Folder     `json:"folder"`
		Breadcrumbs []models.PathEntry `json:"breadcrumbs"`
	}
	decodeJSON(t, rec, &out)
	if out.Folder == nil || out.Folder.Name != "Docs" {
		t.Errorf("Folder = %+v, want Docs", out.Folder)
	}
	if len(out.Breadcrumbs) != 1 || out.Breadcrumbs[0].ID != created.Folder.ID {
		t.Errorf("Breadcrumbs = %+v, want only Docs", out.Breadcrumbs)
	}
}

func TestContents_NotFound(t *testing.T) {
	router, folders, sign := newRouter(t)

	other, err := folders.Create(context.Background(), primitive.NewObjectID(), "Theirs", nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	for _, id := range []string{"not-an-id", primitive.NewObjectID().Hex(), other.ID.Hex()} {
		rec := do(router, sign(httptest.NewRequest(http.MethodGet, "/"+id, nil)))
		rec.AssertStatus(t, http.StatusNotFound)
	}
}
