package pipeline

import (
	"context"
	"fmt"
	"hash/fnv"
	"image"
	"sync"
)

// Preview defaults used when optional fields are absent.
const (
	PreviewDefaultStrength = 0.8
	PreviewMaxSide         = 1024
)

// PreviewPipeline is an in-process stand-in for a diffusion model. It does
// not understand the prompt; it produces a deterministic function of
// (image, prompt, steps, strength, guidance, seed) so the rest of the system
// can be exercised without a GPU.
//
// Each step blends a fraction of seeded noise into the working image,
// strength sets how much of the source survives, guidance raises contrast
// and the prompt picks a tint.
type PreviewPipeline struct {
	maxSide int

	mu     sync.Mutex
	closed bool
}

// NewPreviewPipeline creates a preview pipeline. maxSide limits the working
// resolution; zero selects PreviewMaxSide.
func NewPreviewPipeline(maxSide int) *PreviewPipeline {
	if maxSide <= 0 {
		maxSide = PreviewMaxSide
	}
	return &PreviewPipeline{maxSide: maxSide}
}

// Name implements Pipeline.
func (p *PreviewPipeline) Name() string { return "preview" }

// Capabilities implements Pipeline.
func (p *PreviewPipeline) Capabilities() Capabilities {
	return Capabilities{Strength: true, Guidance: true, Seed: true}
}

// Close implements Pipeline.
func (p *PreviewPipeline) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

// Generate implements Pipeline.
func (p *PreviewPipeline) Generate(ctx context.Context, req Request) (*Result, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	strength := PreviewDefaultStrength
	if req.Strength != nil {
		strength = *req.Strength
	}
	guidance := 0.0
	if req.GuidanceScale != nil {
		guidance = *req.GuidanceScale
	}

	src := ToNRGBA(FitWithin(req.Image, p.maxSide))
	out := image.NewNRGBA(src.Bounds())
	copy(out.Pix, src.Pix)

	tint := promptTint(req.Prompt)
	rng := req.Generator.Rand()
	perStep := strength / float64(req.Steps)

	for step := 0; step < req.Steps; step++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("preview: cancelled at step %d: %w", step, err)
		}
		for i := 0; i < len(out.Pix); i += 4 {
			noise := float64(rng.Intn(256))
			for c := 0; c < 3; c++ {
				target := 0.5*noise + 0.5*float64(tint[c])
				v := float64(out.Pix[i+c])
				out.Pix[i+c] = clampByte(v + (target-v)*perStep)
			}
		}
	}

	if guidance > 0 {
		factor := 1 + guidance/10
		for i := 0; i < len(out.Pix); i += 4 {
			for c := 0; c < 3; c++ {
				v := float64(out.Pix[i+c])
				out.Pix[i+c] = clampByte(128 + (v-128)*factor)
			}
		}
	}

	return &Result{Images: []image.Image{out}}, nil
}

// promptTint hashes the prompt into an RGB colour.
func promptTint(prompt string) [3]uint8 {
	h := fnv.New32a()
	h.Write([]byte(prompt))
	sum := h.Sum32()
	return [3]uint8{uint8(sum >> 16), uint8(sum >> 8), uint8(sum)}
}

func clampByte(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}

var _ Pipeline = (*PreviewPipeline)(nil)
