package entity

import (
	"time"
)

// AuthMethod records how an account proves its identity.
type AuthMethod string

const (
	AuthMethodCredentials AuthMethod = "credentials"
	AuthMethodOAuth       AuthMethod = "oauth"
)

// Status is the account lifecycle marker. Onboarding moves it forward outside
// of this module.
type Status string

const (
	StatusNotOnboarded Status = "not_onboarded"
	StatusActive       Status = "active"
)

// User is the aggregate root for the identity domain.
// Password holds a bcrypt hash, never the plaintext, and is empty for oauth
// accounts. Avatar is a reference (URL or data URI) to an image that passed
// validation, nil when the user has none.
type User struct {
	ID         string
	Email      string
	Username   string
	Password   string
	Avatar     *string
	AuthMethod AuthMethod
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// HasPassword reports whether the account can sign in with credentials.
func (u *User) HasPassword() bool {
	return u.AuthMethod == AuthMethodCredentials && u.Password != ""
}

// AvatarRef returns the avatar reference or an empty string.
func (u *User) AvatarRef() string {
	if u.Avatar == nil {
		return ""
	}
	return *u.Avatar
}
