package application

import (
	"context"

	"github.com/oksasatya/identity-core/pkg/imagecheck"
)

// InlineAvatarStore keeps the avatar inside the user record as a data URI.
type InlineAvatarStore struct{}

func (InlineAvatarStore) Put(_ context.Context, _ string, img imagecheck.Image) (string, error) {
	return imagecheck.EncodeDataURI(img), nil
}

// Delete is a no-op: an inline avatar lives nowhere but the user record.
func (InlineAvatarStore) Delete(context.Context, string) error {
	return nil
}
