// Package session binds opaque session ids to an authenticated email in Redis.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "session:"
	DefaultTTL = 24 * time.Hour
)

var ErrNotFound = errors.New("session not found")

type Session struct {
	ID        string
	Email     string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Store keeps each session in a hash at session:<id> that expires after TTL.
type Store struct {
	rdb redis.Cmdable
	TTL time.Duration

	now   func() time.Time
	newID func() string
}

func NewStore(rdb redis.Cmdable, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{rdb: rdb, TTL: ttl, now: time.Now, newID: uuid.NewString}
}

func key(id string) string {
	return keyPrefix + id
}

// Create starts a session bound to email.
func (s *Store) Create(ctx context.Context, email, userID string) (*Session, error) {
	now := s.now().UTC()
	sess := &Session{
		ID:        s.newID(),
		Email:     email,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.TTL),
	}
	pipe := s.rdb.Pipeline()
	pipe.HSet(ctx, key(sess.ID), map[string]any{
		"email":      sess.Email,
		"user_id":    sess.UserID,
		"created_at": now.Format(time.RFC3339Nano),
	})
	pipe.Expire(ctx, key(sess.ID), s.TTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get returns ErrNotFound for unknown or expired ids.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	data, err := s.rdb.HGetAll(ctx, key(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || data["email"] == "" {
		return nil, ErrNotFound
	}
	sess := &Session{ID: id, Email: data["email"], UserID: data["user_id"]}
	if t, err := time.Parse(time.RFC3339Nano, data["created_at"]); err == nil {
		sess.CreatedAt = t
		sess.ExpiresAt = t.Add(s.TTL)
	}
	return sess, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.rdb.Del(ctx, key(id)).Err()
}
