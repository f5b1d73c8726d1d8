package imagecheck

import (
	"encoding/base64"
	"errors"
	"strings"
)

var (
	// ErrInvalidDataURI is returned when a string is not a base64 data URI.
	ErrInvalidDataURI = errors.New("invalid base64 data uri")
	// ErrDataURITooLarge is returned when the decoded payload would exceed the limit.
	ErrDataURITooLarge = errors.New("data uri payload too large")
)

// DecodeDataURI extracts the payload of a "data:<mime>;base64,<data>" string.
// A bare base64 string without the data: prefix is accepted as well. The
// declared MIME type is ignored; the bytes are validated on their own.
func DecodeDataURI(s string, maxBytes int) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		idx := strings.Index(s, "base64,")
		if idx < 0 {
			return nil, ErrInvalidDataURI
		}
		s = s[idx+len("base64,"):]
	}
	if s == "" {
		return nil, ErrInvalidDataURI
	}
	if maxBytes > 0 && base64.StdEncoding.DecodedLen(len(s)) > maxBytes+2 {
		return nil, ErrDataURITooLarge
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidDataURI
	}
	return b, nil
}

// EncodeDataURI renders img as a data URI.
func EncodeDataURI(img Image) string {
	return "data:" + img.ContentType() + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}
