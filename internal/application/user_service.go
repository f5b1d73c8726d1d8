package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/identity-core/internal/domain/apperr"
	"github.com/oksasatya/identity-core/internal/domain/entity"
	repo "github.com/oksasatya/identity-core/internal/domain/repository"
	"github.com/oksasatya/identity-core/pkg/helpers"
)

const (
	defaultSearchSize = 10
	maxSearchSize     = 50
)

// Service runs the identity workflows. Repo, Vault and Images are required;
// the remaining collaborators are optional.
type Service struct {
	Repo    repo.UserRepository
	Vault   PasswordHasher
	Images  ImageValidator
	Avatars AvatarStore
	Events  EventPublisher
	Search  UserIndexer
	Logger  *logrus.Logger

	now   func() time.Time
	newID func() string
}

// Principal is the identity resolved by the session collaborator. UserID,
// when set, pins the principal to the account the session was opened for.
type Principal struct {
	Email  string
	UserID string
}

// AuthResult tells the caller to bind its session to SessionEmail.
type AuthResult struct {
	User         *entity.User
	SessionEmail string
}

func NewService(repo repo.UserRepository, vault PasswordHasher, images ImageValidator, avatars AvatarStore, events EventPublisher, search UserIndexer, logger *logrus.Logger) *Service {
	if avatars == nil {
		avatars = InlineAvatarStore{}
	}
	return &Service{
		Repo:    repo,
		Vault:   vault,
		Images:  images,
		Avatars: avatars,
		Events:  events,
		Search:  search,
		Logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

func (s *Service) log() *logrus.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return helpers.NewDiscardLogger()
}

func (s *Service) clock() time.Time {
	if s.now == nil {
		return time.Now().UTC()
	}
	return s.now().UTC()
}

func (s *Service) generateID() string {
	if s.newID == nil {
		return uuid.NewString()
	}
	return s.newID()
}

// lookup returns nil, nil when no user matches.
func lookup(ctx context.Context, op string, find func(context.Context, string) (*entity.User, error), key string) (*entity.User, error) {
	u, err := find(ctx, key)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil
		}
		return nil, apperr.Persistence(op, err)
	}
	return u, nil
}

func (s *Service) resolve(ctx context.Context, p Principal) (*entity.User, error) {
	email := normalizeEmail(p.Email)
	u, err := lookup(ctx, "find user by email", s.Repo.FindByEmail, email)
	if err != nil {
		return nil, err
	}
	// A session outliving its account must not attach to a newer account
	// registered under the same email.
	if u == nil || (p.UserID != "" && u.ID != p.UserID) {
		return nil, &apperr.NotFoundError{Resource: "user", Key: email}
	}
	return u, nil
}

// GetProfile returns the principal's account.
func (s *Service) GetProfile(ctx context.Context, p Principal) (*entity.User, error) {
	return s.resolve(ctx, p)
}

// DeleteAccount removes the principal's account from the directory. Any later
// request carrying the same session gets NotFoundError.
func (s *Service) DeleteAccount(ctx context.Context, p Principal) error {
	u, err := s.resolve(ctx, p)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, u); err != nil {
		s.log().WithError(err).WithField("user_id", u.ID).Error("delete user failed")
		return apperr.Persistence("delete user", err)
	}
	s.log().WithField("user_id", u.ID).Info("user deleted")

	s.publish(ctx, EventUserDeleted, u)
	if s.Search != nil {
		if err := s.Search.Remove(ctx, u.ID); err != nil {
			s.log().WithError(err).WithField("user_id", u.ID).Warn("search remove failed")
		}
	}
	return nil
}

// SearchUsers queries the search projection by username or email. It returns
// an empty result when search is not configured.
func (s *Service) SearchUsers(ctx context.Context, q string, size int) ([]UserSummary, error) {
	q = strings.TrimSpace(q)
	if s.Search == nil || q == "" {
		return []UserSummary{}, nil
	}
	if size <= 0 || size > maxSearchSize {
		size = defaultSearchSize
	}
	return s.Search.Search(ctx, q, size)
}

// afterPersist runs the projections of a committed change. The store is the
// source of truth, so failures here are logged and swallowed.
func (s *Service) afterPersist(ctx context.Context, eventType string, u *entity.User) {
	s.publish(ctx, eventType, u)
	if s.Search != nil {
		if err := s.Search.Index(ctx, u); err != nil {
			s.log().WithError(err).WithField("user_id", u.ID).Warn("search index failed")
		}
	}
}

func (s *Service) publish(ctx context.Context, eventType string, u *entity.User) {
	if s.Events == nil {
		return
	}
	evt := UserEvent{
		Type:       eventType,
		UserID:     u.ID,
		Email:      u.Email,
		Username:   u.Username,
		OccurredAt: s.clock(),
	}
	if err := s.Events.Publish(ctx, evt); err != nil {
		s.log().WithError(err).WithFields(logrus.Fields{"user_id": u.ID, "event": eventType}).Warn("publish event failed")
	}
}
