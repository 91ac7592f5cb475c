// internal/app/store/ratelimit/store.go
package ratelimit

import (
	"context"
	"time"

	"github.com/dalemusser/stratadrive/internal/app/system/normalize"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Attempt tracks failed login attempts for one email address.
type Attempt struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Email        string             `bson:"email"`         // Normalized (lowercase)
	AttemptCount int                `bson:"attempt_count"` // Failed attempts in current window
	WindowStart  time.Time          `bson:"window_start"`  // When the current counting window started
	LockedUntil  *time.Time         `bson:"locked_until"`  // Lockout expiry time (nil if not locked)
	LastAttempt  time.Time          `bson:"last_attempt"`  // Most recent attempt (for TTL cleanup)
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
}

// Limits configures the login throttle.
type Limits struct {
	MaxAttempts int
	Window      time.Duration
	Lockout     time.Duration
}

// Store throttles password login attempts per email. Errors talking to the
// database fail open so an outage never locks every account.
type Store struct {
	c      *mongo.Collection
	limits Limits
	logger *zap.Logger
}

// New creates a new rate limit Store.
func New(db *mongo.Database, limits Limits, logger *zap.Logger) *Store {
	if limits.MaxAttempts <= 0 {
		limits.MaxAttempts = 5
	}
	if limits.Window <= 0 {
		limits.Window = 15 * time.Minute
	}
	if limits.Lockout <= 0 {
		limits.Lockout = 15 * time.Minute
	}
	return &Store{
		c:      db.Collection("rate_limits"),
		limits: limits,
		logger: logger,
	}
}

// CheckAllowed reports whether a login attempt for email may proceed.
// remaining is -1 while locked out.
func (s *Store) CheckAllowed(ctx context.Context, email string) (allowed bool, remaining int, lockedUntil *time.Time) {
	now := time.Now()

	var a Attempt
	err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return true, s.limits.MaxAttempts, nil
	}
	if err != nil {
		s.logger.Warn("rate limit lookup failed", zap.Error(err))
		return true, s.limits.MaxAttempts, nil
	}

	if a.LockedUntil != nil && now.Before(*a.LockedUntil) {
		return false, -1, a.LockedUntil
	}
	if now.After(a.WindowStart.Add(s.limits.Window)) {
		return true, s.limits.MaxAttempts, nil
	}

	remaining = s.limits.MaxAttempts - a.AttemptCount
	if remaining <= 0 {
		return false, 0, nil
	}
	return true, remaining, nil
}

// RecordFailure counts a failed attempt and locks the email once the limit
// is reached within the window.
func (s *Store) RecordFailure(ctx context.Context, email string) (lockedOut bool, lockedUntil *time.Time) {
	email = normalize.Email(email)
	now := time.Now()

	// Start a fresh window when the previous one has lapsed.
	_, err := s.c.UpdateOne(ctx,
		bson.M{"email": email, "window_start": bson.M{"$lt": now.Add(-s.limits.Window)}},
		bson.M{"$set": bson.M{"attempt_count": 0, "window_start": now, "locked_until": nil}},
	)
	if err != nil {
		s.logger.Warn("rate limit window reset failed", zap.Error(err))
		return false, nil
	}

	var a Attempt
	err = s.c.FindOneAndUpdate(ctx,
		bson.M{"email": email},
		bson.M{
			"$inc": bson.M{"attempt_count": 1},
			"$set": bson.M{"last_attempt": now, "updated_at": now},
			"$setOnInsert": bson.M{
				"window_start": now,
				"locked_until": nil,
				"created_at":   now,
			},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&a)
	if err != nil {
		// A concurrent first failure for the same email can lose the upsert race.
		if !wafflemongo.IsDup(err) {
			s.logger.Warn("rate limit record failed", zap.Error(err))
		}
		return false, nil
	}

	if a.AttemptCount < s.limits.MaxAttempts {
		return false, nil
	}

	until := now.Add(s.limits.Lockout)
	if _, err := s.c.UpdateOne(ctx,
		bson.M{"_id": a.ID},
		bson.M{"$set": bson.M{"locked_until": until}},
	); err != nil {
		s.logger.Warn("rate limit lockout failed", zap.Error(err))
		return false, nil
	}
	return true, &until
}

// ClearOnSuccess removes the record for email after a successful login.
func (s *Store) ClearOnSuccess(ctx context.Context, email string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"email": normalize.Email(email)})
	return err
}

// GetAttempt returns the current record for email, or nil if there is none.
func (s *Store) GetAttempt(ctx context.Context, email string) (*Attempt, error) {
	var a Attempt
	err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
