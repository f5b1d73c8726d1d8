package application

import (
	"context"
	"time"

	"github.com/oksasatya/identity-core/internal/domain/entity"
	"github.com/oksasatya/identity-core/pkg/imagecheck"
)

// PasswordHasher is satisfied by *helpers.CredentialVault.
type PasswordHasher interface {
	Hash(ctx context.Context, plain string) (string, error)
	Verify(ctx context.Context, plain, hash string) (bool, error)
}

// ImageValidator is satisfied by *imagecheck.Pipeline.
type ImageValidator interface {
	Validate(raw []byte) imagecheck.Result
}

// AvatarStore turns an accepted image into the reference kept on the user.
// Delete discards a reference returned by Put that never reached the store.
type AvatarStore interface {
	Put(ctx context.Context, userID string, img imagecheck.Image) (string, error)
	Delete(ctx context.Context, ref string) error
}

// EventPublisher emits user lifecycle events. Delivery is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, evt UserEvent) error
}

// UserIndexer maintains the search projection of the directory.
type UserIndexer interface {
	Index(ctx context.Context, u *entity.User) error
	Remove(ctx context.Context, userID string) error
	Search(ctx context.Context, q string, size int) ([]UserSummary, error)
}

const (
	EventUserRegistered     = "user.registered"
	EventUserProfileUpdated = "user.profile_updated"
	EventUserDeleted        = "user.deleted"
)

// UserEvent is the payload published after a directory change.
type UserEvent struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	Username   string    `json:"username"`
	OccurredAt time.Time `json:"occurred_at"`
}

// UserSummary is the public projection returned by search.
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}
