package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/stratadrive/internal/app/system/apperr"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// DefaultTTL is how long an issued credential stays valid.
const DefaultTTL = 7 * 24 * time.Hour

// Claims is the signed payload of a credential.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Issuer signs and verifies HS256 credentials.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// ConfigError is returned when credential configuration is invalid.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

// NewIssuer creates an Issuer. In secure (production) mode a weak or
// placeholder secret is rejected; in dev mode it is logged and allowed.
func NewIssuer(secret string, ttl time.Duration, secure bool, logger *zap.Logger) (*Issuer, error) {
	if secret == "" {
		return nil, &ConfigError{Message: "jwt secret is empty; provide ≥32 random chars"}
	}

	isWeak := len(secret) < 32 || isDefaultKey(secret)
	if secure && isWeak {
		return nil, &ConfigError{
			Message: "jwt secret is too weak for production; provide ≥32 random chars (not the default dev key)",
		}
	} else if isWeak {
		logger.Warn("jwt secret is weak; 32+ random chars required in production",
			zap.Int("length", len(secret)),
			zap.Bool("is_default", isDefaultKey(secret)))
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl}, nil
}

// TTL returns the credential lifetime.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue returns a signed credential for the user and its expiry.
func (i *Issuer) Issue(userID, email string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(i.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email: email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign credential: %w", err)
	}
	return signed, exp, nil
}

// Verify checks the credential and returns the identity it binds.
// Any failure is reported as apperr.ErrUnauthenticated.
func (i *Issuer) Verify(credential string) (*Identity, error) {
	if credential == "" {
		return nil, apperr.ErrUnauthenticated
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(credential, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("credential expired: %w", apperr.ErrUnauthenticated)
		}
		return nil, fmt.Errorf("credential invalid: %w", apperr.ErrUnauthenticated)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, apperr.ErrUnauthenticated
	}
	// Every owned row is keyed by the subject's ObjectID.
	if _, err := primitive.ObjectIDFromHex(claims.Subject); err != nil {
		return nil, fmt.Errorf("credential subject is not a user id: %w", apperr.ErrUnauthenticated)
	}

	return &Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

// isDefaultKey checks if the secret appears to be a default/placeholder value.
func isDefaultKey(key string) bool {
	lower := strings.ToLower(key)
	patterns := []string{
		"dev-only",
		"change-me",
		"placeholder",
		"default",
		"example",
		"insecure",
		"test-key",
		"secret123",
		"password",
	}
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
