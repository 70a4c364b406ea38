package pipeline

import (
	"context"
	"fmt"
	"image"
	"net/http"
)

// A1111Path is the img2img endpoint of AUTOMATIC1111-compatible servers.
const A1111Path = "/sdapi/v1/img2img"

// a1111Request is the subset of the img2img payload this client sends.
type a1111Request struct {
	Prompt            string   `json:"prompt"`
	InitImages        []string `json:"init_images"`
	Steps             int      `json:"steps"`
	DenoisingStrength *float64 `json:"denoising_strength,omitempty"`
	CFGScale          *float64 `json:"cfg_scale,omitempty"`
	Seed              int64    `json:"seed"`
	Width             int      `json:"width"`
	Height            int      `json:"height"`
	BatchSize         int      `json:"batch_size"`
	NIter             int      `json:"n_iter"`
	SendImages        bool     `json:"send_images"`
	SaveImages        bool     `json:"save_images"`
}

type a1111Response struct {
	Images []string `json:"images"`
	Info   string   `json:"info"`
}

// A1111Pipeline talks to a Stable Diffusion WebUI (AUTOMATIC1111 / Forge)
// server. It forwards steps, strength, guidance and seed.
type A1111Pipeline struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewA1111Pipeline creates a client for the server at baseURL.
func NewA1111Pipeline(baseURL, apiKey string, client *http.Client) (*A1111Pipeline, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("%w: a1111 variant needs PIPELINE_URL", ErrMissingEndpoint)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &A1111Pipeline{baseURL: baseURL, apiKey: apiKey, client: client}, nil
}

// Name implements Pipeline.
func (p *A1111Pipeline) Name() string { return "a1111" }

// Capabilities implements Pipeline.
func (p *A1111Pipeline) Capabilities() Capabilities {
	return Capabilities{Strength: true, Guidance: true, Seed: true}
}

// Close implements Pipeline.
func (p *A1111Pipeline) Close() error { return nil }

// Generate implements Pipeline.
func (p *A1111Pipeline) Generate(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	init, err := EncodeBase64PNG(req.Image)
	if err != nil {
		return nil, err
	}

	b := req.Image.Bounds()
	body := a1111Request{
		Prompt:            req.Prompt,
		InitImages:        []string{init},
		Steps:             req.Steps,
		DenoisingStrength: req.Strength,
		CFGScale:          req.GuidanceScale,
		Seed:              req.Generator.Seed(),
		Width:             roundDown8(b.Dx()),
		Height:            roundDown8(b.Dy()),
		BatchSize:         1,
		NIter:             1,
		SendImages:        true,
		SaveImages:        false,
	}

	var resp a1111Response
	if err := postJSON(ctx, p.client, joinURL(p.baseURL, A1111Path), p.apiKey, body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Images) == 0 {
		return nil, ErrEmptyResult
	}

	images := make([]image.Image, 0, len(resp.Images))
	for i, encoded := range resp.Images {
		img, err := DecodeBase64Image(encoded)
		if err != nil {
			return nil, fmt.Errorf("a1111: image %d: %w", i, err)
		}
		images = append(images, img)
	}
	return &Result{Images: images}, nil
}

// roundDown8 snaps a dimension to the multiple of 8 diffusion models need.
func roundDown8(v int) int {
	if v < 8 {
		return 8
	}
	return v - v%8
}

var _ Pipeline = (*A1111Pipeline)(nil)
