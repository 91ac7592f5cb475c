package sharing

import (
	"context"
	"encoding/hex"
	"errors"
	"io"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/stratadrive/internal/app/system/apperr"
	"github.com/dalemusser/stratadrive/internal/app/system/blobstore"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/dalemusser/stratadrive/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fixture struct {
	svc      *Service
	versions *testutil.MemVersions
	blobs    *blobstore.Memory
	owner    primitive.ObjectID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	versions := testutil.NewMemVersions()
	blobs := blobstore.NewMemory()
	return &fixture{
		svc:      New(versions, blobs, zap.NewNop()),
		versions: versions,
		blobs:    blobs,
		owner:    primitive.NewObjectID(),
	}
}

func (f *fixture) addVersion(t *testing.T, name string, v int, body string) *models.FileVersion {
	t.Helper()
	ctx := context.Background()
	fv := &models.FileVersion{
		OwnerID:      f.owner,
		OriginalName: name,
		StorageKey:   "g-" + name + "/" + name + "_v" + strconv.Itoa(v),
		Version:      v,
		FileGroupID:  "g-" + name,
		ContentType:  "text/plain",
		Size:         int64(len(body)),
		UploadedAt:   time.Now(),
	}
	if err := f.versions.Insert(ctx, fv); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if _, err := f.blobs.Put(ctx, fv.StorageKey, strings.NewReader(body), "text/plain"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	return fv
}

func (f *fixture) share(t *testing.T, id primitive.ObjectID) string {
	t.Helper()
	token, err := f.svc.CreateShareLink(context.Background(), f.owner, id)
	if err != nil {
		t.Fatalf("CreateShareLink() error = %v", err)
	}
	return token
}

func TestNewToken(t *testing.T) {
	a, err := NewToken()
	if err != nil {
		t.Fatalf("NewToken() error = %v", err)
	}
	b, err := NewToken()
	if err != nil {
		t.Fatalf("NewToken() error = %v", err)
	}

	if len(a) != 2*TokenBytes {
		t.Errorf("len(token) = %d, want %d", len(a), 2*TokenBytes)
	}
	if _, err := hex.DecodeString(a); err != nil {
		t.Errorf("token %q is not hex: %v", a, err)
	}
	if a == b {
		t.Error("two tokens should differ")
	}
}

func TestShareLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v2 := f.addVersion(t, "a.txt", 2, "two")

	token := f.share(t, v2.ID)

	got, err := f.svc.ResolveShare(ctx, token)
	if err != nil {
		t.Fatalf("ResolveShare() error = %v", err)
	}
	if got.ID != v2.ID {
		t.Errorf("ID = %s, want %s", got.ID.Hex(), v2.ID.Hex())
	}
	if !got.IsShared {
		t.Error("version should be shared")
	}

	if err := f.svc.RevokeShare(ctx, f.owner, v2.ID); err != nil {
		t.Fatalf("RevokeShare() error = %v", err)
	}
	if _, err := f.svc.ResolveShare(ctx, token); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("after revoke: error = %v, want ErrNotFound", err)
	}

	// Idempotent.
	if err := f.svc.RevokeShare(ctx, f.owner, v2.ID); err != nil {
		t.Errorf("second RevokeShare() error = %v", err)
	}
}

func TestCreateShareLink_PerVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v1 := f.addVersion(t, "a.txt", 1, "one")
	v2 := f.addVersion(t, "a.txt", 2, "two")

	f.share(t, v2.ID)

	row, err := f.versions.GetByID(ctx, v1.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if row.IsShared || row.SharedToken != nil {
		t.Errorf("v1 IsShared = %v, SharedToken = %v, want unshared", row.IsShared, row.SharedToken)
	}
}

func TestCreateShareLink_ReshareRotatesToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.addVersion(t, "a.txt", 1, "one")

	first := f.share(t, v.ID)
	second := f.share(t, v.ID)
	if first == second {
		t.Fatal("resharing should issue a new token")
	}

	if _, err := f.svc.ResolveShare(ctx, first); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("old token: error = %v, want ErrNotFound", err)
	}
	got, err := f.svc.ResolveShare(ctx, second)
	if err != nil {
		t.Fatalf("ResolveShare(new) error = %v", err)
	}
	if got.ID != v.ID {
		t.Errorf("ID = %s, want %s", got.ID.Hex(), v.ID.Hex())
	}
}

func TestCreateShareLink_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.addVersion(t, "a.txt", 1, "one")

	if _, err := f.svc.CreateShareLink(ctx, primitive.NewObjectID(), v.ID); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("foreign: error = %v, want ErrUnauthorized", err)
	}
	if _, err := f.svc.CreateShareLink(ctx, f.owner, primitive.NewObjectID()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing: error = %v, want ErrNotFound", err)
	}

	f.svc.newToken = func() (string, error) { return "", errors.New("entropy exhausted") }
	if _, err := f.svc.CreateShareLink(ctx, f.owner, v.ID); err == nil {
		t.Fatal("CreateShareLink() expected error when token generation fails")
	}
	row, _ := f.versions.GetByID(ctx, v.ID)
	if row.IsShared {
		t.Error("version should stay unshared")
	}
}

func TestRevokeShare_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.addVersion(t, "a.txt", 1, "one")
	token := f.share(t, v.ID)

	if err := f.svc.RevokeShare(ctx, primitive.NewObjectID(), v.ID); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("foreign: error = %v, want ErrUnauthorized", err)
	}
	if _, err := f.svc.ResolveShare(ctx, token); err != nil {
		t.Errorf("a rejected revoke must leave the share in place: %v", err)
	}

	if err := f.svc.RevokeShare(ctx, f.owner, primitive.NewObjectID()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing: error = %v, want ErrNotFound", err)
	}
}

func TestResolveShare_IndistinguishableFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	shared := f.addVersion(t, "a.txt", 1, "one")
	other := f.addVersion(t, "b.txt", 1, "two")

	token := f.share(t, shared.ID)
	revoked := f.share(t, other.ID)
	if err := f.svc.RevokeShare(ctx, f.owner, other.ID); err != nil {
		t.Fatalf("RevokeShare() error = %v", err)
	}

	never, err := NewToken()
	if err != nil {
		t.Fatalf("NewToken() error = %v", err)
	}

	for name, tok := range map[string]string{
		"never issued": never,
		"revoked":      revoked,
		"empty":        "",
		"prefix":       token[:8],
	} {
		if _, err := f.svc.ResolveShare(ctx, tok); err != apperr.ErrNotFound {
			t.Errorf("%s: error = %v, want exactly ErrNotFound", name, err)
		}
	}
}

func TestOpenShare(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.addVersion(t, "a.txt", 1, "hello")

	token := f.share(t, v.ID)

	fv, obj, err := f.svc.OpenShare(ctx, token)
	if err != nil {
		t.Fatalf("OpenShare() error = %v", err)
	}
	defer obj.Body.Close()
	if fv.ID != v.ID {
		t.Errorf("ID = %s, want %s", fv.ID.Hex(), v.ID.Hex())
	}
	data, err := io.ReadAll(obj.Body)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("body = %q, want %q", data, "hello")
	}

	if _, _, err := f.svc.OpenShare(ctx, "unknown"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown token: error = %v, want ErrNotFound", err)
	}
}
