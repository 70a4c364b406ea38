package pipeline

import "errors"

// Sentinel errors for pipeline operations.
var (
	// Request errors
	ErrInvalidRequest = errors.New("pipeline: invalid generation request")

	// Backend errors
	ErrBackend     = errors.New("pipeline: backend request failed")
	ErrEmptyResult = errors.New("pipeline: backend returned no images")

	// Construction errors
	ErrUnsupportedVariant = errors.New("pipeline: unsupported variant")
	ErrMissingEndpoint    = errors.New("pipeline: endpoint URL is required")
	ErrMissingAPIKey      = errors.New("pipeline: API key is required")
	ErrClosed             = errors.New("pipeline: pipeline is closed")

	// Image errors
	ErrImageEmpty      = errors.New("pipeline: image data is empty")
	ErrImageDecodeFail = errors.New("pipeline: failed to decode image")
	ErrImageEncodeFail = errors.New("pipeline: failed to encode image")
)
