package blobstore

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestMemory_PutGet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	res, err := m.Put(ctx, "g1/a_v1.txt", strings.NewReader("hello"), "text/plain")
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if res.Key != "g1/a_v1.txt" {
		t.Errorf("Key = %q, want %q", res.Key, "g1/a_v1.txt")
	}

	obj, err := m.Get(ctx, "g1/a_v1.txt")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer obj.Body.Close()
	data, _ := io.ReadAll(obj.Body)
	if string(data) != "hello" {
		t.Errorf("body = %q, want %q", data, "hello")
	}
	if obj.ContentType != "text/plain" {
		t.Errorf("ContentType = %q, want %q", obj.ContentType, "text/plain")
	}
}

func TestMemory_PutIsCreateOnly(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if _, err := m.Put(ctx, "k", strings.NewReader("first"), ""); err != nil {
		t.Fatalf("first Put() error = %v", err)
	}
	_, err := m.Put(ctx, "k", strings.NewReader("second"), "")
	if !errors.Is(err, ErrExists) {
		t.Fatalf("second Put() error = %v, want ErrExists", err)
	}

	obj, _ := m.Get(ctx, "k")
	data, _ := io.ReadAll(obj.Body)
	if string(data) != "first" {
		t.Errorf("body = %q, want original content", data)
	}
}

func TestMemory_GetMissing(t *testing.T) {
	m := NewMemory()
	if _, err := m.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestMemory_Delete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_, _ = m.Put(ctx, "k", strings.NewReader("x"), "")

	if err := m.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if m.Has("k") {
		t.Error("blob should be gone after Delete")
	}
	if err := m.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete() of missing key error = %v, want nil", err)
	}
}

func TestMemory_InjectedErrors(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	boom := errors.New("bucket offline")

	m.PutErr = boom
	if _, err := m.Put(ctx, "k", strings.NewReader("x"), ""); !errors.Is(err, boom) {
		t.Errorf("Put() error = %v, want %v", err, boom)
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d, want 0", m.Len())
	}

	m.PutErr = nil
	_, _ = m.Put(ctx, "k", strings.NewReader("x"), "")
	m.DeleteErr = boom
	if err := m.Delete(ctx, "k"); !errors.Is(err, boom) {
		t.Errorf("Delete() error = %v, want %v", err, boom)
	}
	if !m.Has("k") {
		t.Error("blob should survive a failed Delete")
	}
}

func TestMemory_CanceledContext(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := m.Put(ctx, "k", strings.NewReader("x"), ""); !errors.Is(err, context.Canceled) {
		t.Errorf("Put() error = %v, want context.Canceled", err)
	}
}
