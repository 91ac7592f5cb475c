package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/gorilla/securecookie"
)

// MaxSignTTL bounds signed URLs for every backend.
const MaxSignTTL = 7 * 24 * time.Hour

// SignedPathPrefix is where the app serves blobs behind signed tokens.
const SignedPathPrefix = "/api/files/blob/"

// Waffle adapts a waffle pantry storage backend (local disk or S3/CloudFront).
//
// Those backends have no conditional write, so Put probes for an existing
// key first; the probe narrows the overwrite window but does not close it.
// Sign issues an app URL carrying a securecookie token that Resolve checks.
type Waffle struct {
	store   storage.Store
	signer  *securecookie.SecureCookie
	baseURL string
}

type signedKey struct {
	Key string
	Exp int64
}

// NewWaffle wraps store. signKey authenticates signed URLs (32+ bytes);
// baseURL is the externally visible origin of this service.
func NewWaffle(store storage.Store, signKey []byte, baseURL string) *Waffle {
	sc := securecookie.New(signKey, nil)
	sc.MaxAge(int(MaxSignTTL.Seconds()))
	return &Waffle{
		store:   store,
		signer:  sc,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Put writes r under key unless a blob is already there.
func (s *Waffle) Put(ctx context.Context, key string, r io.Reader, contentType string) (PutResult, error) {
	if rc, err := s.store.Get(ctx, key); err == nil {
		rc.Close()
		return PutResult{}, ErrExists
	}
	if err := s.store.Put(ctx, key, r, &storage.PutOptions{ContentType: contentType}); err != nil {
		return PutResult{}, fmt.Errorf("storage put %s: %w", key, err)
	}
	return PutResult{Key: key, Location: s.store.URL(key)}, nil
}

// Get opens the blob under key. The backend does not record content types,
// so callers use the type stored on the version row.
func (s *Waffle) Get(ctx context.Context, key string) (*Object, error) {
	rc, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage get %s: %w", key, err)
	}
	return &Object{Body: rc}, nil
}

// Delete removes the blob under key; a missing blob is not an error.
func (s *Waffle) Delete(ctx context.Context, key string) error {
	if err := s.store.Delete(ctx, key); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage delete %s: %w", key, err)
	}
	return nil
}

// Sign returns an app URL that serves key until ttl elapses.
func (s *Waffle) Sign(_ context.Context, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 || ttl > MaxSignTTL {
		ttl = MaxSignTTL
	}
	token, err := s.signer.Encode("blob", signedKey{Key: key, Exp: time.Now().Add(ttl).Unix()})
	if err != nil {
		return "", fmt.Errorf("sign %s: %w", key, err)
	}
	return s.baseURL + SignedPathPrefix + token, nil
}

// Resolve returns the key carried by a token from Sign, or ErrNotFound when
// the token is malformed, tampered with, or expired.
func (s *Waffle) Resolve(token string) (string, error) {
	var sk signedKey
	if err := s.signer.Decode("blob", token, &sk); err != nil {
		return "", ErrNotFound
	}
	if sk.Key == "" || time.Now().Unix() > sk.Exp {
		return "", ErrNotFound
	}
	return sk.Key, nil
}
