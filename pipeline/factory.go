package pipeline

import (
	"fmt"
	"net/http"
)

// Config selects and configures a backend.
type Config struct {
	Variant Variant
	BaseURL string
	Model   string
	APIKey  string

	// HTTPClient is used by the HTTP variants. nil selects http.DefaultClient.
	HTTPClient *http.Client

	// PreviewMaxSide bounds the preview working resolution.
	PreviewMaxSide int
}

// New builds the pipeline named by cfg.Variant. It is called once at startup;
// the returned instance is shared for the lifetime of the process.
func New(cfg Config) (Pipeline, error) {
	switch cfg.Variant {
	case VariantPreview, "":
		return NewPreviewPipeline(cfg.PreviewMaxSide), nil
	case VariantA1111:
		return NewA1111Pipeline(cfg.BaseURL, cfg.APIKey, cfg.HTTPClient)
	case VariantLocalAI:
		return NewLocalAIPipeline(cfg.BaseURL, cfg.Model, cfg.APIKey, cfg.HTTPClient)
	case VariantOpenAI:
		return NewOpenAIPipeline(cfg.BaseURL, cfg.Model, cfg.APIKey, cfg.HTTPClient)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVariant, cfg.Variant)
	}
}
