package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/identity-core/internal/domain/entity"
)

// ErrNotFound is returned by the Find methods when no user matches.
var ErrNotFound = errors.New("user not found")

// UserRepository is the user directory. Implementations own the uniqueness of
// email and username: the backing store must reject duplicates itself, and Save
// reports such a rejection as *apperr.ConflictError naming the field. Any other
// store failure is returned as *apperr.PersistenceError.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByUsername(ctx context.Context, username string) (*entity.User, error)

	// Save inserts u when its ID is new and otherwise replaces the full record.
	// All fields come from the caller; nothing is defaulted here.
	Save(ctx context.Context, u *entity.User) error

	Delete(ctx context.Context, u *entity.User) error
}
