// Package imagecheck inspects untrusted image payloads before they are accepted
// as avatars.
//
// Validation only ever decodes pixel data after the header has shown the image
// to be of an allowed format and within the dimension bounds, so memory use per
// call is capped by the policy, not by the payload.
package imagecheck

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Reason explains a rejection.
type Reason string

const (
	ReasonBadFormat   Reason = "bad_format"
	ReasonTooLarge    Reason = "too_large"
	ReasonDecodeError Reason = "decode_error"
)

const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"
)

// MaxDimension is the hard ceiling on avatar width and height. A Policy may
// tighten it but never loosen it.
const MaxDimension = 1024

// Policy bounds what the pipeline accepts. Dimensions are inclusive.
type Policy struct {
	MaxWidth  int
	MaxHeight int
	MaxBytes  int
	Formats   []string
}

// DefaultPolicy accepts png and jpeg up to 1024x1024 and 5 MiB.
func DefaultPolicy() Policy {
	return Policy{
		MaxWidth:  MaxDimension,
		MaxHeight: MaxDimension,
		MaxBytes:  5 << 20,
		Formats:   []string{FormatPNG, FormatJPEG},
	}
}

// Image is an accepted payload together with its intrinsic properties.
type Image struct {
	Format string
	Width  int
	Height int
	Data   []byte
}

// ContentType returns the MIME type of the image.
func (i Image) ContentType() string {
	return "image/" + i.Format
}

// Result is the outcome of Validate. Image is only set when Accepted.
type Result struct {
	Accepted bool
	Reason   Reason
	Image    Image
}

func rejected(r Reason) Result {
	return Result{Reason: r}
}

// Pipeline validates payloads against a Policy. It holds no mutable state.
type Pipeline struct {
	policy  Policy
	allowed map[string]bool
}

// New builds a Pipeline. Zero fields in p fall back to DefaultPolicy values
// and dimensions above MaxDimension are clamped to it.
func New(p Policy) *Pipeline {
	def := DefaultPolicy()
	p.MaxWidth = clampDimension(p.MaxWidth)
	p.MaxHeight = clampDimension(p.MaxHeight)
	if p.MaxBytes <= 0 {
		p.MaxBytes = def.MaxBytes
	}
	if len(p.Formats) == 0 {
		p.Formats = def.Formats
	}
	allowed := make(map[string]bool, len(p.Formats))
	for _, f := range p.Formats {
		allowed[f] = true
	}
	return &Pipeline{policy: p, allowed: allowed}
}

func clampDimension(v int) int {
	if v <= 0 || v > MaxDimension {
		return MaxDimension
	}
	return v
}

// Policy returns the effective policy.
func (p *Pipeline) Policy() Policy {
	return p.policy
}

// Validate decodes raw and reports whether it is an acceptable avatar.
// It never panics on hostile input: decoder panics become decode_error.
func (p *Pipeline) Validate(raw []byte) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = rejected(ReasonDecodeError)
		}
	}()

	if len(raw) == 0 {
		return rejected(ReasonDecodeError)
	}
	if len(raw) > p.policy.MaxBytes {
		return rejected(ReasonTooLarge)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return rejected(ReasonDecodeError)
	}
	if !p.allowed[format] {
		return rejected(ReasonBadFormat)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return rejected(ReasonDecodeError)
	}
	if cfg.Width > p.policy.MaxWidth || cfg.Height > p.policy.MaxHeight {
		return rejected(ReasonTooLarge)
	}

	// The header can be intact while the pixel data is truncated or corrupt.
	if _, _, err := image.Decode(bytes.NewReader(raw)); err != nil {
		return rejected(ReasonDecodeError)
	}

	return Result{
		Accepted: true,
		Image: Image{
			Format: format,
			Width:  cfg.Width,
			Height: cfg.Height,
			Data:   raw,
		},
	}
}

// String renders a result for logs.
func (r Result) String() string {
	if r.Accepted {
		return fmt.Sprintf("accepted %s %dx%d", r.Image.Format, r.Image.Width, r.Image.Height)
	}
	return "rejected " + string(r.Reason)
}
