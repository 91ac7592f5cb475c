package jsonutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/stratadrive/internal/app/system/apperr"
)

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusCreated, map[string]int{"version": 2})

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != `{"version":2}` {
		t.Errorf("body = %q, want %q", body, `{"version":2}`)
	}
}

func TestNoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	NoContent(rec)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("body should be empty, got %q", rec.Body.String())
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unauthenticated", apperr.ErrUnauthenticated, http.StatusUnauthorized},
		{"unauthorized", apperr.ErrUnauthorized, http.StatusForbidden},
		{"validation", apperr.Invalid("name", "required"), http.StatusBadRequest},
		{"conflict", fmt.Errorf("insert: %w", apperr.ErrConflict), http.StatusConflict},
		{"not found", apperr.ErrNotFound, http.StatusNotFound},
		{"upload failed", apperr.ErrUploadFailed, http.StatusBadGateway},
		{"storage unavailable", apperr.ErrStorageUnavailable, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusFor(tt.err); got != tt.want {
				t.Errorf("StatusFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWriteError_HidesDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, fmt.Errorf("mongo: connection refused at 10.0.0.5: %w", apperr.ErrNotFound))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["error"] != "not found" {
		t.Errorf("error = %q, want %q", body["error"], "not found")
	}
}

func TestWriteError_Internal(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("secret detail"))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	if strings.Contains(rec.Body.String(), "secret detail") {
		t.Error("internal error detail leaked into response body")
	}
}

func TestWriteError_ValidationFields(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, apperr.Invalid("name", "Name is required."))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	var body struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Error != "validation failed" {
		t.Errorf("error = %q, want %q", body.Error, "validation failed")
	}
	if body.Fields["name"] != "Name is required." {
		t.Errorf("fields[name] = %q, want %q", body.Fields["name"], "Name is required.")
	}
}

func TestDecode(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/folders", strings.NewReader(`{"name":"Docs","parentId":null}`))

	var input struct {
		Name     string  `json:"name"`
		ParentID *string `json:"parentId"`
	}
	if err := Decode(req, &input); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if input.Name != "Docs" {
		t.Errorf("Name = %q, want %q", input.Name, "Docs")
	}
	if input.ParentID != nil {
		t.Errorf("ParentID = %v, want nil", input.ParentID)
	}

	bad := httptest.NewRequest(http.MethodPost, "/api/folders", strings.NewReader(`{not json`))
	if err := Decode(bad, &input); err == nil {
		t.Error("Decode() should fail for malformed JSON")
	}
}
