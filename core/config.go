package core

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"img2img/pipeline"
)

// Config holds the application configuration. Every field is read from the
// environment by LoadConfig; the env tag names the variable.
type Config struct {
	// Web UI
	WebUIHost      string `env:"WEBUI_HOST" validate:"required"`
	WebUIPort      int    `env:"WEBUI_PORT" validate:"min=1,max=65535"`
	WebUIPassword  string `env:"WEBUI_PASSWORD"`
	MaxUploadMB    int    `env:"MAX_UPLOAD_MB" validate:"min=1,max=512"`
	MaxImagePixels int    `env:"MAX_IMAGE_PIXELS" validate:"min=1"`

	// Pipeline
	PipelineVariant string        `env:"PIPELINE_VARIANT" validate:"oneof=preview a1111 localai openai"`
	PipelineURL     string        `env:"PIPELINE_URL" validate:"omitempty,url"`
	PipelineModel   string        `env:"PIPELINE_MODEL"`
	PipelineAPIKey  string        `env:"PIPELINE_API_KEY"`
	PipelineTimeout time.Duration `env:"PIPELINE_TIMEOUT_SECONDS" validate:"min=0"`
	PreviewMaxSide  int           `env:"PREVIEW_MAX_SIDE" validate:"min=64,max=4096"`

	// Outputs and form
	OutputDir      string `env:"OUTPUT_DIR" validate:"required"`
	SaveOutputs    bool   `env:"SAVE_OUTPUTS"`
	FormConfigPath string `env:"FORM_CONFIG_PATH"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogFile  string `env:"LOG_FILE"`
	DevMode  bool   `env:"DEV_MODE"`

	AllowSelfSignedCerts bool `env:"ALLOW_SELF_SIGNED_CERTS"`
}

// Defaults used when a variable is unset.
const (
	DefaultWebUIHost      = "localhost"
	DefaultWebUIPort      = 3000
	DefaultMaxUploadMB    = 20
	DefaultMaxImagePixels = int(pipeline.DefaultMaxImagePixels)
	DefaultOutputDir      = "outputs"
	DefaultLogLevel       = "info"
	DefaultLogFile        = "app.log"
	DefaultPreviewMaxSide = pipeline.PreviewMaxSide
)

// LoadConfig reads the configuration from the environment. Unparseable
// values and failed validation are reported as *ConfigError.
func LoadConfig() (*Config, error) {
	env := newEnvReader()

	apiKey := env.String("PIPELINE_API_KEY", "")
	if apiKey == "" {
		apiKey = env.String("OPENAI_API_KEY", "")
	}

	cfg := &Config{
		WebUIHost:      env.String("WEBUI_HOST", DefaultWebUIHost),
		WebUIPort:      env.Int("WEBUI_PORT", DefaultWebUIPort),
		WebUIPassword:  env.String("WEBUI_PASSWORD", ""),
		MaxUploadMB:    env.Int("MAX_UPLOAD_MB", DefaultMaxUploadMB),
		MaxImagePixels: env.Int("MAX_IMAGE_PIXELS", DefaultMaxImagePixels),

		PipelineVariant: strings.ToLower(env.String("PIPELINE_VARIANT", string(pipeline.VariantPreview))),
		PipelineURL:     env.String("PIPELINE_URL", ""),
		PipelineModel:   env.String("PIPELINE_MODEL", ""),
		PipelineAPIKey:  apiKey,
		PipelineTimeout: env.Seconds("PIPELINE_TIMEOUT_SECONDS", 0),
		PreviewMaxSide:  env.Int("PREVIEW_MAX_SIDE", DefaultPreviewMaxSide),

		OutputDir:      env.String("OUTPUT_DIR", DefaultOutputDir),
		SaveOutputs:    env.Bool("SAVE_OUTPUTS", true),
		FormConfigPath: env.String("FORM_CONFIG_PATH", ""),

		LogLevel: strings.ToLower(env.String("LOG_LEVEL", DefaultLogLevel)),
		LogFile:  env.String("LOG_FILE", DefaultLogFile),
		DevMode:  env.Bool("DEV_MODE", false),

		AllowSelfSignedCerts: env.Bool("ALLOW_SELF_SIGNED_CERTS", false),
	}

	if err := env.Err(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var configValidator = newConfigValidator()

func newConfigValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

// Validate checks field ranges and the per-variant requirements.
func (c *Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return ErrInvalidValue(fe.Field(), fmt.Sprint(fe.Value()), describeRule(fe))
		}
		return err
	}

	switch pipeline.Variant(c.PipelineVariant) {
	case pipeline.VariantA1111, pipeline.VariantLocalAI:
		if c.PipelineURL == "" {
			return ErrMissingPipelineURL(c.PipelineVariant)
		}
	case pipeline.VariantOpenAI:
		if c.PipelineAPIKey == "" {
			return ErrMissingAuth(c.PipelineVariant)
		}
	}
	return nil
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must not be empty"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "url":
		return "must be an absolute URL"
	default:
		return "failed the " + fe.Tag() + " check"
	}
}

// Addr returns the listen address of the web UI.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.WebUIHost, c.WebUIPort)
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// AuthEnabled reports whether the web UI requires a password.
func (c *Config) AuthEnabled() bool {
	return c.WebUIPassword != ""
}

// PipelineConfig converts the configuration into the pipeline factory input.
func (c *Config) PipelineConfig() pipeline.Config {
	timeout := c.PipelineTimeout
	if timeout == 0 {
		timeout = 10 * time.Minute
	}
	return pipeline.Config{
		Variant:        pipeline.Variant(c.PipelineVariant),
		BaseURL:        c.PipelineURL,
		Model:          c.PipelineModel,
		APIKey:         c.PipelineAPIKey,
		HTTPClient:     GetHTTPClient(c, timeout),
		PreviewMaxSide: c.PreviewMaxSide,
	}
}

// GetHTTPClient returns an HTTP client honouring AllowSelfSignedCerts.
// Every outbound request to a pipeline backend goes through it.
func GetHTTPClient(cfg *Config, timeout time.Duration) *http.Client {
	client := &http.Client{
		Timeout: timeout,
	}

	if cfg.AllowSelfSignedCerts {
		client.Transport = &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return client
}
