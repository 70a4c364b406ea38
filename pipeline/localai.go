package pipeline

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"net/http"
)

// LocalAIPath is the OpenAI-style image generation endpoint served by LocalAI.
const LocalAIPath = "/v1/images/generations"

type localAIRequest struct {
	Model          string `json:"model,omitempty"`
	Prompt         string `json:"prompt"`
	File           string `json:"file"`
	Step           int    `json:"step"`
	Seed           int64  `json:"seed"`
	Size           string `json:"size"`
	N              int    `json:"n"`
	ResponseFormat string `json:"response_format"`
}

type localAIItem struct {
	B64JSON string `json:"b64_json"`
	URL     string `json:"url"`
}

type localAIResponse struct {
	Data []localAIItem `json:"data"`
}

// LocalAIPipeline sends image-to-image requests to a LocalAI server running
// a diffusers or stablediffusion-ggml model. The endpoint only takes steps
// and seed, so strength and guidance are not declared.
type LocalAIPipeline struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
}

// NewLocalAIPipeline creates a client for the LocalAI server at baseURL.
func NewLocalAIPipeline(baseURL, model, apiKey string, client *http.Client) (*LocalAIPipeline, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("%w: localai variant needs PIPELINE_URL", ErrMissingEndpoint)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &LocalAIPipeline{baseURL: baseURL, model: model, apiKey: apiKey, client: client}, nil
}

// Name implements Pipeline.
func (p *LocalAIPipeline) Name() string { return "localai" }

// Capabilities implements Pipeline.
func (p *LocalAIPipeline) Capabilities() Capabilities {
	return Capabilities{Seed: true}
}

// Close implements Pipeline.
func (p *LocalAIPipeline) Close() error { return nil }

// Generate implements Pipeline.
func (p *LocalAIPipeline) Generate(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	file, err := EncodeBase64PNG(req.Image)
	if err != nil {
		return nil, err
	}

	b := req.Image.Bounds()
	body := localAIRequest{
		Model:          p.model,
		Prompt:         req.Prompt,
		File:           file,
		Step:           req.Steps,
		Seed:           req.Generator.Seed(),
		Size:           fmt.Sprintf("%dx%d", roundDown8(b.Dx()), roundDown8(b.Dy())),
		N:              1,
		ResponseFormat: "b64_json",
	}

	var resp localAIResponse
	if err := postJSON(ctx, p.client, joinURL(p.baseURL, LocalAIPath), p.apiKey, body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, ErrEmptyResult
	}

	images := make([]image.Image, 0, len(resp.Data))
	for i, item := range resp.Data {
		var data []byte
		switch {
		case item.B64JSON != "":
			data, err = base64.StdEncoding.DecodeString(item.B64JSON)
			if err != nil {
				return nil, fmt.Errorf("localai: image %d: %w: %v", i, ErrImageDecodeFail, err)
			}
		case item.URL != "":
			data, err = fetchImage(ctx, p.client, item.URL)
			if err != nil {
				return nil, fmt.Errorf("localai: image %d: %w", i, err)
			}
		default:
			return nil, fmt.Errorf("localai: image %d: %w", i, ErrEmptyResult)
		}
		img, _, err := DecodeImage(data)
		if err != nil {
			return nil, fmt.Errorf("localai: image %d: %w", i, err)
		}
		images = append(images, img)
	}
	return &Result{Images: images}, nil
}

var _ Pipeline = (*LocalAIPipeline)(nil)
