package application

import (
	"context"

	"github.com/oksasatya/identity-core/internal/domain/apperr"
)

// SignIn verifies an email and password pair. Unknown accounts, accounts
// without a password and wrong passwords all yield the same
// InvalidCredentialsError.
func (s *Service) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if validateEmail(email) != "" || password == "" {
		return nil, &apperr.InvalidCredentialsError{}
	}

	u, err := lookup(ctx, "find user by email", s.Repo.FindByEmail, email)
	if err != nil {
		return nil, err
	}
	if u == nil || !u.HasPassword() {
		return nil, &apperr.InvalidCredentialsError{}
	}

	ok, err := s.Vault.Verify(ctx, password, u.Password)
	if err != nil {
		s.log().WithError(err).WithField("user_id", u.ID).Error("verify password failed")
		return nil, &apperr.HashingError{Err: err}
	}
	if !ok {
		s.log().WithField("user_id", u.ID).Info("sign in rejected")
		return nil, &apperr.InvalidCredentialsError{}
	}
	return &AuthResult{User: u, SessionEmail: u.Email}, nil
}
