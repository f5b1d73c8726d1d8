package application

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/identity-core/internal/domain/apperr"
	"github.com/oksasatya/identity-core/internal/domain/entity"
)

type RegisterInput struct {
	Email    string
	Password string
	Username string
}

// Register creates a credentials account. The email and username lookups only
// give an early answer; the store's unique constraints decide races, and a
// lost race is reported with the same ConflictError as the pre-check.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := normalizeEmail(in.Email)
	if err := validateRegistration(email, in.Password, in.Username); err != nil {
		return nil, err
	}

	existing, err := lookup(ctx, "find user by email", s.Repo.FindByEmail, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &apperr.ConflictError{Field: apperr.FieldEmail}
	}
	existing, err = lookup(ctx, "find user by username", s.Repo.FindByUsername, in.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &apperr.ConflictError{Field: apperr.FieldUsername}
	}

	hash, err := s.Vault.Hash(ctx, in.Password)
	if err != nil {
		s.log().WithError(err).Error("hash password failed")
		return nil, &apperr.HashingError{Err: err}
	}

	now := s.clock()
	u := &entity.User{
		ID:         s.generateID(),
		Email:      email,
		Username:   in.Username,
		Password:   hash,
		Avatar:     nil,
		AuthMethod: entity.AuthMethodCredentials,
		Status:     entity.StatusNotOnboarded,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Repo.Save(ctx, u); err != nil {
		if field, ok := apperr.ConflictField(err); ok {
			s.log().WithField("field", field).Info("registration lost uniqueness race")
			return nil, err
		}
		s.log().WithError(err).Error("save user failed")
		return nil, apperr.Persistence("save user", err)
	}
	s.log().WithFields(logrus.Fields{"user_id": u.ID, "username": u.Username}).Info("user registered")

	s.afterPersist(ctx, EventUserRegistered, u)
	return &AuthResult{User: u, SessionEmail: u.Email}, nil
}
