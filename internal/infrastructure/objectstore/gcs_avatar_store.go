// Package objectstore keeps accepted avatar images in Google Cloud Storage.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"

	"github.com/oksasatya/identity-core/pkg/helpers"
	"github.com/oksasatya/identity-core/pkg/imagecheck"
)

const defaultPrefix = "avatars"

type (
	uploadFunc func(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
	removeFunc func(ctx context.Context, objectPath string) error
)

// AvatarStore writes each accepted avatar to a new object and returns its
// public URL. Objects are never overwritten, so a URL held by a concurrent
// reader stays valid.
type AvatarStore struct {
	Bucket string
	Prefix string

	upload uploadFunc
	remove removeFunc
	newID  func() string
}

func NewAvatarStore(client *storage.Client, bucket string) (*AvatarStore, error) {
	if client == nil || bucket == "" {
		return nil, errors.New("gcs not configured")
	}
	return &AvatarStore{
		Bucket: bucket,
		Prefix: defaultPrefix,
		upload: func(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error) {
			return helpers.UploadObject(ctx, client, bucket, objectPath, contentType, r)
		},
		remove: func(ctx context.Context, objectPath string) error {
			return helpers.DeleteObject(ctx, client, bucket, objectPath)
		},
		newID: uuid.NewString,
	}, nil
}

func (s *AvatarStore) objectPath(userID string, img imagecheck.Image) string {
	ext := ".png"
	if img.Format == imagecheck.FormatJPEG {
		ext = ".jpg"
	}
	return path.Join(s.Prefix, userID, s.newID()+ext)
}

func (s *AvatarStore) Put(ctx context.Context, userID string, img imagecheck.Image) (string, error) {
	return s.upload(ctx, s.objectPath(userID, img), img.ContentType(), bytes.NewReader(img.Data))
}

// Delete removes the object behind a URL returned by Put. URLs outside the
// store's bucket and prefix are refused.
func (s *AvatarStore) Delete(ctx context.Context, ref string) error {
	objectPath, ok := helpers.ObjectPathFromURL(s.Bucket, ref)
	if !ok || !strings.HasPrefix(objectPath, s.Prefix+"/") {
		return fmt.Errorf("not an avatar object: %q", ref)
	}
	return s.remove(ctx, objectPath)
}
