package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestConfigError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ConfigError
		want string
	}{
		{
			name: "with action",
			err:  &ConfigError{Code: "X", Message: "Bad thing", Action: "Fix it"},
			want: "Bad thing. Fix it",
		},
		{
			name: "without action",
			err:  &ConfigError{Code: "X", Message: "Bad thing"},
			want: "Bad thing",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *ConfigError
		code     string
		contains []string
	}{
		{"env file", ErrEnvFileInvalid(".env", "line 3"), ErrCodeEnvFileInvalid, []string{".env", "line 3"}},
		{"invalid value", ErrInvalidValue("WEBUI_PORT", "abc", "must be a whole number"), ErrCodeInvalidValue,
			[]string{"WEBUI_PORT", "'abc'", "must be a whole number"}},
		{"a1111 url", ErrMissingPipelineURL("a1111"), ErrCodeMissingPipelineURL, []string{"a1111", "PIPELINE_URL", ":7860"}},
		{"localai url", ErrMissingPipelineURL("localai"), ErrCodeMissingPipelineURL, []string{"localai", ":8080"}},
		{"auth", ErrMissingAuth("openai"), ErrCodeMissingAuth, []string{"openai", "PIPELINE_API_KEY"}},
		{"unreachable", ErrPipelineUnreachable("http://x", "refused"), ErrCodePipelineUnreachable,
			[]string{"http://x", "refused", "ALLOW_SELF_SIGNED_CERTS"}},
		{"output dir", ErrOutputDirUnusable("/out", "read-only"), ErrCodeOutputDirUnusable, []string{"/out", "SAVE_OUTPUTS"}},
		{"form config", ErrFormConfigInvalid("form.yaml", "bad"), ErrCodeFormConfigInvalid, []string{"form.yaml", "FORM_CONFIG_PATH"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.code)
			}
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("Error() = %q, want it to contain %q", msg, s)
				}
			}
		})
	}
}

func TestIsConfigError(t *testing.T) {
	wrapped := fmt.Errorf("startup: %w", ErrMissingAuth("openai"))
	joined := errors.Join(errors.New("other"), ErrInvalidValue("A", "b", "c"))

	tests := []struct {
		name string
		err  error
		want bool
		code string
	}{
		{"direct", ErrMissingAuth("openai"), true, ErrCodeMissingAuth},
		{"wrapped", wrapped, true, ErrCodeMissingAuth},
		{"joined", joined, true, ErrCodeInvalidValue},
		{"plain", errors.New("plain"), false, ""},
		{"nil", nil, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsConfigError(tt.err); got != tt.want {
				t.Errorf("IsConfigError() = %v, want %v", got, tt.want)
			}
			if got := GetErrorCode(tt.err); got != tt.code {
				t.Errorf("GetErrorCode() = %q, want %q", got, tt.code)
			}
		})
	}
}
