package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/stratadrive/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// TestJWTSecret is long enough to pass the issuer's strength check.
const TestJWTSecret = "k3y-for-unit-tests-0123456789abcdefghijklmnop"

// TestUser returns a verified identity with a fresh user ID.
func TestUser() *auth.Identity {
	return &auth.Identity{
		UserID:   primitive.NewObjectID().Hex(),
		Email:    "owner@test.com",
		Username: "Test Owner",
	}
}

// WithUser adds a user to the request context for testing authenticated handlers.
// This bypasses the credential middleware and injects the identity directly.
func WithUser(r *http.Request, user *auth.Identity) *http.Request {
	return auth.WithTestUser(r, user)
}

// NewGateway returns an auth gateway backed by a real issuer.
func NewGateway(t *testing.T) *auth.Gateway {
	t.Helper()
	iss, err := auth.NewIssuer(TestJWTSecret, time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	return auth.NewGateway(iss, auth.CookieConfig{}, zap.NewNop())
}

// Bearer sets an Authorization header carrying a credential for user.
func Bearer(t *testing.T, gw *auth.Gateway, r *http.Request, user *auth.Identity) *http.Request {
	t.Helper()
	token, _, err := gw.Issuer().Issue(user.UserID, user.Email)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

// NewAuthenticatedRequest creates an HTTP request with a user in context.
func NewAuthenticatedRequest(method, target string, user *auth.Identity) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	return WithUser(req, user)
}

// ResponseRecorder wraps httptest.ResponseRecorder with helper methods.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t interface{ Errorf(string, ...any) }, expected int) {
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d", r.Code, expected)
	}
}

// AssertContains checks if the response body contains the expected string.
func (r *ResponseRecorder) AssertContains(t interface{ Errorf(string, ...any) }, expected string) {
	body := r.Body.String()
	if !strings.Contains(body, expected) {
		t.Errorf("response body does not contain %q", expected)
	}
}
