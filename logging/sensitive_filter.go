package logging

import (
	"regexp"
	"strings"
)

// RedactedPlaceholder replaces sensitive data.
const RedactedPlaceholder = "[REDACTED]"

// Patterns that identify secrets inside free-form values such as backend
// error bodies.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)sk-[a-zA-Z0-9_-]{20,}`),              // OpenAI keys, legacy and project-scoped
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9._-]{20,}`),       // Authorization headers echoed by backends
	regexp.MustCompile(`(?i)(password|secret|token|api_key|apikey)\s*[:=]\s*[^\s,;&]{6,}`),
}

// Field names whose values are always redacted.
var sensitiveNames = []string{
	"API_KEY",
	"APIKEY",
	"PASSWORD",
	"SECRET",
	"TOKEN",
	"AUTHORIZATION",
	"COOKIE",
}

// RedactSensitiveData replaces every detected secret in value.
func RedactSensitiveData(value string) string {
	if value == "" {
		return value
	}
	for _, p := range sensitivePatterns {
		value = p.ReplaceAllString(value, RedactedPlaceholder)
	}
	return value
}

// IsSensitiveField reports whether a field or variable name denotes a secret,
// e.g. PIPELINE_API_KEY or webui_password.
func IsSensitiveField(name string) bool {
	upper := strings.ToUpper(name)
	for _, s := range sensitiveNames {
		if strings.Contains(upper, s) {
			return true
		}
	}
	return false
}
