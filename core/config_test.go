package core

import (
	"net/http"
	"testing"
	"time"

	"img2img/pipeline"
)

var configEnvVars = []string{
	"WEBUI_HOST", "WEBUI_PORT", "WEBUI_PASSWORD", "MAX_UPLOAD_MB", "MAX_IMAGE_PIXELS",
	"PIPELINE_VARIANT", "PIPELINE_URL", "PIPELINE_MODEL", "PIPELINE_API_KEY", "OPENAI_API_KEY",
	"PIPELINE_TIMEOUT_SECONDS", "PREVIEW_MAX_SIDE",
	"OUTPUT_DIR", "SAVE_OUTPUTS", "FORM_CONFIG_PATH",
	"LOG_LEVEL", "LOG_FILE", "DEV_MODE", "ALLOW_SELF_SIGNED_CERTS",
}

// setEnv blanks every config variable, then applies vars.
func setEnv(t *testing.T, vars map[string]string) {
	t.Helper()
	for _, k := range configEnvVars {
		t.Setenv(k, "")
	}
	for k, v := range vars {
		t.Setenv(k, v)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	setEnv(t, nil)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Addr() != "localhost:3000" {
		t.Errorf("Addr() = %q", cfg.Addr())
	}
	if cfg.PipelineVariant != "preview" || cfg.PreviewMaxSide != pipeline.PreviewMaxSide {
		t.Errorf("pipeline = %q/%d", cfg.PipelineVariant, cfg.PreviewMaxSide)
	}
	if !cfg.SaveOutputs || cfg.OutputDir != DefaultOutputDir {
		t.Errorf("outputs = %v %q", cfg.SaveOutputs, cfg.OutputDir)
	}
	if cfg.MaxUploadBytes() != 20<<20 {
		t.Errorf("MaxUploadBytes() = %d", cfg.MaxUploadBytes())
	}
	if int64(cfg.MaxImagePixels) != pipeline.DefaultMaxImagePixels {
		t.Errorf("MaxImagePixels = %d", cfg.MaxImagePixels)
	}
	if cfg.AuthEnabled() {
		t.Error("AuthEnabled() = true without a password")
	}
	if cfg.LogLevel != "info" || cfg.LogFile != DefaultLogFile {
		t.Errorf("logging = %q %q", cfg.LogLevel, cfg.LogFile)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	setEnv(t, map[string]string{
		"WEBUI_HOST":               "0.0.0.0",
		"WEBUI_PORT":               "8443",
		"WEBUI_PASSWORD":           "secret",
		"PIPELINE_VARIANT":         "A1111",
		"PIPELINE_URL":             "http://gpu-box:7860",
		"PIPELINE_TIMEOUT_SECONDS": "120",
		"SAVE_OUTPUTS":             "false",
		"LOG_LEVEL":                "DEBUG",
	})

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Addr() != "0.0.0.0:8443" || !cfg.AuthEnabled() {
		t.Errorf("web UI = %q auth=%v", cfg.Addr(), cfg.AuthEnabled())
	}
	if cfg.PipelineVariant != "a1111" || cfg.LogLevel != "debug" {
		t.Errorf("values not lower-cased: %q %q", cfg.PipelineVariant, cfg.LogLevel)
	}
	if cfg.SaveOutputs {
		t.Error("SaveOutputs = true")
	}

	pc := cfg.PipelineConfig()
	if pc.Variant != pipeline.VariantA1111 || pc.BaseURL != "http://gpu-box:7860" {
		t.Errorf("PipelineConfig() = %+v", pc)
	}
	if pc.HTTPClient.Timeout != 120*time.Second {
		t.Errorf("client timeout = %v", pc.HTTPClient.Timeout)
	}
}

func TestLoadConfig_OpenAIKeyFallback(t *testing.T) {
	setEnv(t, map[string]string{
		"PIPELINE_VARIANT": "openai",
		"OPENAI_API_KEY":   "sk-test",
	})
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.PipelineAPIKey != "sk-test" {
		t.Errorf("PipelineAPIKey = %q", cfg.PipelineAPIKey)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
		code string
	}{
		{"unparseable port", map[string]string{"WEBUI_PORT": "http"}, ErrCodeInvalidValue},
		{"port out of range", map[string]string{"WEBUI_PORT": "70000"}, ErrCodeInvalidValue},
		{"unknown variant", map[string]string{"PIPELINE_VARIANT": "dalle"}, ErrCodeInvalidValue},
		{"bad bool", map[string]string{"SAVE_OUTPUTS": "sometimes"}, ErrCodeInvalidValue},
		{"bad url", map[string]string{"PIPELINE_VARIANT": "localai", "PIPELINE_URL": "not a url"}, ErrCodeInvalidValue},
		{"bad log level", map[string]string{"LOG_LEVEL": "verbose"}, ErrCodeInvalidValue},
		{"upload limit", map[string]string{"MAX_UPLOAD_MB": "0"}, ErrCodeInvalidValue},
		{"pixel limit", map[string]string{"MAX_IMAGE_PIXELS": "0"}, ErrCodeInvalidValue},
		{"a1111 without url", map[string]string{"PIPELINE_VARIANT": "a1111"}, ErrCodeMissingPipelineURL},
		{"localai without url", map[string]string{"PIPELINE_VARIANT": "localai"}, ErrCodeMissingPipelineURL},
		{"openai without key", map[string]string{"PIPELINE_VARIANT": "openai"}, ErrCodeMissingAuth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnv(t, tt.vars)
			_, err := LoadConfig()
			if err == nil {
				t.Fatal("LoadConfig() error = nil")
			}
			if got := GetErrorCode(err); got != tt.code {
				t.Errorf("GetErrorCode() = %q, want %q (%v)", got, tt.code, err)
			}
		})
	}
}

func TestValidate_ReportsEnvName(t *testing.T) {
	setEnv(t, nil)
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	cfg.PreviewMaxSide = 10

	err = cfg.Validate()
	ce, ok := err.(*ConfigError)
	if !ok {
		t.Fatalf("Validate() = %T %v", err, err)
	}
	if want := "Invalid PREVIEW_MAX_SIDE '10': must be at least 64"; ce.Message != want {
		t.Errorf("Message = %q, want %q", ce.Message, want)
	}
}

func TestGetHTTPClient(t *testing.T) {
	client := GetHTTPClient(&Config{}, time.Second)
	if client.Transport != nil {
		t.Error("default client should use the default transport")
	}

	client = GetHTTPClient(&Config{AllowSelfSignedCerts: true}, time.Second)
	tr, ok := client.Transport.(*http.Transport)
	if !ok || tr.TLSClientConfig == nil || !tr.TLSClientConfig.InsecureSkipVerify {
		t.Errorf("transport = %#v", client.Transport)
	}
}
