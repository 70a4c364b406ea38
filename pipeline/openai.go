package pipeline

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"os"

	"github.com/sashabaranov/go-openai"
)

// Defaults for the OpenAI edit variant.
const (
	DefaultOpenAIBaseURL   = "https://api.openai.com/v1"
	DefaultOpenAIEditModel = "dall-e-2"
	openAIEditSide         = 1024
)

// OpenAIPipeline uses the OpenAI image edit endpoint. The API takes neither a
// step count, strength, guidance nor seed, so only the prompt and the image
// reach the backend.
type OpenAIPipeline struct {
	client *openai.Client
	model  string
}

// NewOpenAIPipeline creates an OpenAI edit client.
func NewOpenAIPipeline(baseURL, model, apiKey string, httpClient *http.Client) (*OpenAIPipeline, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: openai variant needs PIPELINE_API_KEY or OPENAI_API_KEY", ErrMissingAPIKey)
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	if model == "" {
		model = DefaultOpenAIEditModel
	}

	clientConfig := openai.DefaultConfig(apiKey)
	clientConfig.BaseURL = baseURL
	if httpClient != nil {
		clientConfig.HTTPClient = httpClient
	}

	return &OpenAIPipeline{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}, nil
}

// Name implements Pipeline.
func (p *OpenAIPipeline) Name() string { return "openai" }

// Capabilities implements Pipeline.
func (p *OpenAIPipeline) Capabilities() Capabilities {
	return Capabilities{}
}

// Close implements Pipeline.
func (p *OpenAIPipeline) Close() error { return nil }

// Model returns the configured edit model.
func (p *OpenAIPipeline) Model() string { return p.model }

// Generate implements Pipeline.
func (p *OpenAIPipeline) Generate(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Prompt == "" {
		return nil, fmt.Errorf("%w: openai edits need a prompt", ErrInvalidRequest)
	}

	// The edit endpoint wants a square RGBA PNG on disk.
	f, err := os.CreateTemp("", "img2img-edit-*.png")
	if err != nil {
		return nil, fmt.Errorf("openai: staging input: %w", err)
	}
	defer os.Remove(f.Name())
	defer f.Close()

	if err := png.Encode(f, SquarePad(req.Image, openAIEditSide)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageEncodeFail, err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("openai: staging input: %w", err)
	}

	resp, err := p.client.CreateEditImage(ctx, openai.ImageEditRequest{
		Image:          f,
		Prompt:         req.Prompt,
		Model:          p.model,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: openai edit: %v", ErrBackend, err)
	}
	if len(resp.Data) == 0 {
		return nil, ErrEmptyResult
	}

	images := make([]image.Image, 0, len(resp.Data))
	for i, item := range resp.Data {
		if item.B64JSON == "" {
			return nil, fmt.Errorf("openai: image %d: %w", i, ErrEmptyResult)
		}
		data, err := base64.StdEncoding.DecodeString(item.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("openai: image %d: %w: %v", i, ErrImageDecodeFail, err)
		}
		img, _, err := DecodeImage(data)
		if err != nil {
			return nil, fmt.Errorf("openai: image %d: %w", i, err)
		}
		images = append(images, img)
	}
	return &Result{Images: images}, nil
}

var _ Pipeline = (*OpenAIPipeline)(nil)
