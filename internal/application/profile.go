package application

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/identity-core/internal/domain/apperr"
)

// UpdateProfileInput carries the desired username and an optional avatar.
// Avatar holds raw image bytes; nil means no new image was supplied.
// AvatarRef may name the avatar the user already has, which keeps it.
type UpdateProfileInput struct {
	Username  string
	Avatar    []byte
	AvatarRef *string
}

// UpdateProfile changes the principal's username and avatar. Nothing is
// written unless every check passes.
func (s *Service) UpdateProfile(ctx context.Context, p Principal, in UpdateProfileInput) (*AuthResult, error) {
	u, err := s.resolve(ctx, p)
	if err != nil {
		return nil, err
	}

	if msg := validateUsername(in.Username); msg != "" {
		return nil, apperr.NewValidationError(apperr.FieldUsername, msg)
	}

	if in.Username != u.Username {
		holder, err := lookup(ctx, "find user by username", s.Repo.FindByUsername, in.Username)
		if err != nil {
			return nil, err
		}
		if holder != nil && holder.ID != u.ID {
			return nil, &apperr.ConflictError{Field: apperr.FieldUsername}
		}
	}

	avatar := u.Avatar
	var stored string
	switch {
	case in.Avatar != nil:
		res := s.Images.Validate(in.Avatar)
		if !res.Accepted {
			s.log().WithFields(logrus.Fields{"user_id": u.ID, "reason": res.Reason}).Info("avatar rejected")
			return nil, &apperr.ImageRejectedError{Reason: string(res.Reason)}
		}
		ref, err := s.Avatars.Put(ctx, u.ID, res.Image)
		if err != nil {
			s.log().WithError(err).WithField("user_id", u.ID).Error("store avatar failed")
			return nil, apperr.Persistence("store avatar", err)
		}
		avatar, stored = &ref, ref
	case in.AvatarRef != nil && *in.AvatarRef != u.AvatarRef():
		return nil, apperr.NewValidationError(apperr.FieldAvatar, "Avatar reference does not match the current avatar")
	}

	updated := *u
	updated.Username = in.Username
	updated.Avatar = avatar
	updated.UpdatedAt = s.clock()
	if err := s.Repo.Save(ctx, &updated); err != nil {
		if stored != "" {
			s.discardAvatar(ctx, u.ID, stored)
		}
		if _, ok := apperr.ConflictField(err); ok {
			return nil, err
		}
		s.log().WithError(err).WithField("user_id", u.ID).Error("save profile failed")
		return nil, apperr.Persistence("save user", err)
	}
	s.log().WithField("user_id", u.ID).Info("profile updated")

	s.afterPersist(ctx, EventUserProfileUpdated, &updated)
	return &AuthResult{User: &updated, SessionEmail: updated.Email}, nil
}

// discardAvatar removes an avatar whose user record was never saved. It runs
// even when ctx is already cancelled and only logs failures.
func (s *Service) discardAvatar(ctx context.Context, userID, ref string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.Avatars.Delete(ctx, ref); err != nil {
		s.log().WithError(err).WithField("user_id", userID).Warn("discard unsaved avatar failed")
	}
}
