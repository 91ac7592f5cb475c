// Package auth verifies the caller's credential and carries the verified
// identity through the request context. Handlers take the owner id only
// from CurrentUser, never from request parameters.
package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dalemusser/stratadrive/internal/app/system/apperr"
	"github.com/dalemusser/stratadrive/internal/app/system/jsonutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// DefaultCookieName is the credential cookie used by the web client.
const DefaultCookieName = "uid"

// Identity is a verified caller.
type Identity struct {
	UserID   string
	Email    string
	Username string
}

// OwnerID returns the user's ID as an ObjectID.
// If the ID is invalid, returns a zero ObjectID.
func (u *Identity) OwnerID() primitive.ObjectID {
	oid, err := primitive.ObjectIDFromHex(u.UserID)
	if err != nil {
		return primitive.NilObjectID
	}
	return oid
}

// UserFetcher confirms that a verified user still exists and returns fresh
// identity data. It returns (nil, nil) if the account is gone and an error
// only when the lookup itself failed.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) (*Identity, error)
}

// CookieConfig controls how the credential cookie is written.
type CookieConfig struct {
	Name   string
	Domain string
	Secure bool
}

// Gateway authenticates requests from a cookie or Bearer credential.
type Gateway struct {
	issuer      *Issuer
	cookie      CookieConfig
	userFetcher UserFetcher
	logger      *zap.Logger
}

// NewGateway creates a Gateway over issuer.
func NewGateway(issuer *Issuer, cookie CookieConfig, logger *zap.Logger) *Gateway {
	if cookie.Name == "" {
		cookie.Name = DefaultCookieName
	}
	return &Gateway{
		issuer: issuer,
		cookie: cookie,
		logger: logger,
	}
}

// SetUserFetcher sets the fetcher consulted after a credential verifies.
func (g *Gateway) SetUserFetcher(uf UserFetcher) {
	g.userFetcher = uf
}

// Issuer returns the credential issuer.
func (g *Gateway) Issuer() *Issuer {
	return g.issuer
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the identity & "found?" flag from the request context.
func CurrentUser(r *http.Request) (*Identity, bool) {
	u, ok := r.Context().Value(currentUserKey).(*Identity)
	return u, ok
}

func withUser(r *http.Request, u *Identity) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

// WithTestUser injects an Identity into the request context for testing.
func WithTestUser(r *http.Request, u *Identity) *http.Request {
	return withUser(r, u)
}

// credential returns the Bearer token if present, else the cookie value.
func (g *Gateway) credential(r *http.Request) string {
	if tok, ok := BearerToken(r); ok {
		return tok
	}
	if c, err := r.Cookie(g.cookie.Name); err == nil {
		return c.Value
	}
	return ""
}

// Authenticate verifies the request's credential.
func (g *Gateway) Authenticate(r *http.Request) (*Identity, error) {
	cred := g.credential(r)
	if cred == "" {
		return nil, apperr.ErrUnauthenticated
	}

	id, err := g.issuer.Verify(cred)
	if err != nil {
		return nil, err
	}

	if g.userFetcher != nil {
		fresh, err := g.userFetcher.FetchUser(r.Context(), id.UserID)
		if err != nil {
			return nil, err
		}
		if fresh == nil {
			g.logger.Info("credential rejected: user not found",
				zap.String("user_id", id.UserID),
				zap.String("path", r.URL.Path))
			return nil, apperr.ErrUnauthenticated
		}
		id = fresh
	}
	return id, nil
}

// RequireAuth returns middleware that rejects unauthenticated requests with
// 401 and injects the verified Identity otherwise. A failed user lookup is
// reported as 503 so a valid credential is not mistaken for a bad one.
func (g *Gateway) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := g.Authenticate(r)
		if err != nil {
			if !errors.Is(err, apperr.ErrUnauthenticated) {
				g.logger.Warn("request rejected: user lookup failed",
					zap.String("path", r.URL.Path),
					zap.String("method", r.Method),
					zap.Error(err))
				jsonutil.WriteError(w, apperr.ErrStorageUnavailable)
				return
			}
			g.logger.Debug("request rejected: unauthenticated",
				zap.String("path", r.URL.Path),
				zap.String("method", r.Method),
				zap.Error(err))
			jsonutil.WriteError(w, apperr.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, withUser(r, id))
	})
}

// SetCredential writes the credential cookie.
func (g *Gateway) SetCredential(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     g.cookie.Name,
		Value:    token,
		Path:     "/",
		Domain:   g.cookie.Domain,
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
		Secure:   g.cookie.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCredential expires the credential cookie.
func (g *Gateway) ClearCredential(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     g.cookie.Name,
		Value:    "",
		Path:     "/",
		Domain:   g.cookie.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   g.cookie.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
