package pipeline

import (
	"context"
	"fmt"
	"image"
)

// Variant names a concrete pipeline backend.
type Variant string

const (
	VariantPreview Variant = "preview"
	VariantA1111   Variant = "a1111"
	VariantLocalAI Variant = "localai"
	VariantOpenAI  Variant = "openai"
)

// Variants lists every supported variant in display order.
func Variants() []Variant {
	return []Variant{VariantPreview, VariantA1111, VariantLocalAI, VariantOpenAI}
}

// ParseVariant converts a configuration string into a Variant.
func ParseVariant(s string) (Variant, error) {
	for _, v := range Variants() {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedVariant, s)
}

// Capabilities describes which optional request fields a backend honours.
type Capabilities struct {
	// Strength is true when the backend accepts a denoising strength.
	Strength bool
	// Guidance is true when the backend accepts a guidance scale.
	Guidance bool
	// Seed is true when the generator seed reaches the backend.
	Seed bool
}

// Request is one image-to-image generation call. It is built fresh for every
// attempt and must not be modified after it has been passed to Generate.
type Request struct {
	Prompt string
	Image  image.Image
	Steps  int

	// Strength and GuidanceScale are nil when the active variant does not
	// support them.
	Strength      *float64
	GuidanceScale *float64

	Generator *Generator
}

// Validate checks the structural invariants every backend relies on.
func (r Request) Validate() error {
	if r.Image == nil {
		return fmt.Errorf("%w: source image is required", ErrInvalidRequest)
	}
	b := r.Image.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return fmt.Errorf("%w: source image has no pixels", ErrInvalidRequest)
	}
	if r.Steps < 1 {
		return fmt.Errorf("%w: steps %d must be at least 1", ErrInvalidRequest, r.Steps)
	}
	if r.Strength != nil && (*r.Strength < 0 || *r.Strength > 1) {
		return fmt.Errorf("%w: strength %.2f must be between 0 and 1", ErrInvalidRequest, *r.Strength)
	}
	if r.GuidanceScale != nil && *r.GuidanceScale < 0 {
		return fmt.Errorf("%w: guidance scale %.2f must not be negative", ErrInvalidRequest, *r.GuidanceScale)
	}
	if r.Generator == nil {
		return fmt.Errorf("%w: generator is required", ErrInvalidRequest)
	}
	return nil
}

// Result holds the images returned by a backend. Callers consume Images[0].
type Result struct {
	Images []image.Image
}

// First returns the first image or ErrEmptyResult.
func (r *Result) First() (image.Image, error) {
	if r == nil || len(r.Images) == 0 || r.Images[0] == nil {
		return nil, ErrEmptyResult
	}
	return r.Images[0], nil
}

// Pipeline is the opaque generation capability. Implementations are built
// once at startup and reused for every request; they are not required to
// support concurrent calls.
type Pipeline interface {
	// Generate runs one generation synchronously.
	Generate(ctx context.Context, req Request) (*Result, error)

	// Capabilities reports which optional request fields are honoured.
	Capabilities() Capabilities

	// Name returns a short human-readable backend name.
	Name() string

	// Close releases backend resources. Safe to call more than once.
	Close() error
}

// Float returns a pointer to v, for optional request fields.
func Float(v float64) *float64 {
	return &v
}
