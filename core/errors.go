package core

import (
	"errors"
	"fmt"
)

// ConfigError is a configuration problem with an instruction for fixing it.
type ConfigError struct {
	Code    string // for programmatic handling
	Message string
	Action  string
}

func (e *ConfigError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s. %s", e.Message, e.Action)
	}
	return e.Message
}

// Error codes for configuration errors
const (
	ErrCodeEnvFileInvalid      = "ENV_FILE_INVALID"
	ErrCodeInvalidValue        = "INVALID_VALUE"
	ErrCodeMissingPipelineURL  = "MISSING_PIPELINE_URL"
	ErrCodeMissingAuth         = "MISSING_AUTH"
	ErrCodePipelineUnreachable = "PIPELINE_UNREACHABLE"
	ErrCodeOutputDirUnusable   = "OUTPUT_DIR_UNUSABLE"
	ErrCodeFormConfigInvalid   = "FORM_CONFIG_INVALID"
)

// ErrEnvFileInvalid reports a .env file that exists but cannot be parsed.
func ErrEnvFileInvalid(path string, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeEnvFileInvalid,
		Message: fmt.Sprintf("Cannot read %s: %s", path, reason),
		Action:  "Fix the file syntax (KEY=value per line) or remove it",
	}
}

// ErrInvalidValue reports an environment variable with an unusable value.
func ErrInvalidValue(key, value, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidValue,
		Message: fmt.Sprintf("Invalid %s '%s': %s", key, value, reason),
		Action:  fmt.Sprintf("Correct %s in your environment or .env file", key),
	}
}

// ErrMissingPipelineURL reports an HTTP pipeline variant without an endpoint.
func ErrMissingPipelineURL(variant string) *ConfigError {
	example := "http://127.0.0.1:8080"
	if variant == "a1111" {
		example = "http://127.0.0.1:7860"
	}
	return &ConfigError{
		Code:    ErrCodeMissingPipelineURL,
		Message: fmt.Sprintf("The %s pipeline needs a server URL", variant),
		Action:  fmt.Sprintf("Set PIPELINE_URL (e.g., %s) or use PIPELINE_VARIANT=preview", example),
	}
}

// ErrMissingAuth reports a variant that needs credentials.
func ErrMissingAuth(variant string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeMissingAuth,
		Message: fmt.Sprintf("Missing API key for the %s pipeline", variant),
		Action:  "Set PIPELINE_API_KEY (or OPENAI_API_KEY) in your .env file",
	}
}

// ErrPipelineUnreachable reports a pipeline server that did not answer.
func ErrPipelineUnreachable(url string, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodePipelineUnreachable,
		Message: fmt.Sprintf("Cannot connect to pipeline server at %s: %s", url, reason),
		Action:  "Check that PIPELINE_URL is correct and the server is running. For self-signed certificates, set ALLOW_SELF_SIGNED_CERTS=true",
	}
}

// ErrOutputDirUnusable reports an output directory that cannot be written.
func ErrOutputDirUnusable(dir string, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeOutputDirUnusable,
		Message: fmt.Sprintf("Cannot write generated images to %s: %s", dir, reason),
		Action:  "Point OUTPUT_DIR at a writable directory or set SAVE_OUTPUTS=false",
	}
}

// ErrFormConfigInvalid reports an unreadable or malformed form overrides file.
func ErrFormConfigInvalid(path string, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeFormConfigInvalid,
		Message: fmt.Sprintf("Form configuration %s is invalid: %s", path, reason),
		Action:  "Fix the YAML file or unset FORM_CONFIG_PATH",
	}
}

// IsConfigError reports whether err is or wraps a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// GetErrorCode returns the code of the first *ConfigError in err's chain,
// or "" if there is none.
func GetErrorCode(err error) string {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
