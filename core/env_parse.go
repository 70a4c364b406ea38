package core

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// envReader reads typed environment variables. Unset or blank variables
// yield the default; malformed ones are remembered and reported by Err.
type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func newEnvReader() *envReader {
	return &envReader{lookup: os.LookupEnv}
}

func (r *envReader) raw(key string) (string, bool) {
	v, ok := r.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (r *envReader) fail(key, value, reason string) {
	r.errs = append(r.errs, ErrInvalidValue(key, value, reason))
}

// String returns the variable or def.
func (r *envReader) String(key, def string) string {
	if v, ok := r.raw(key); ok {
		return v
	}
	return def
}

// Int parses a base-10 integer.
func (r *envReader) Int(key string, def int) int {
	v, ok := r.raw(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, v, "must be a whole number")
		return def
	}
	return n
}

// Bool accepts true/false, 1/0, yes/no and on/off in any case.
func (r *envReader) Bool(key string, def bool) bool {
	v, ok := r.raw(key)
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		r.fail(key, v, "must be true or false")
		return def
	}
}

// Seconds parses a whole number of seconds into a duration.
func (r *envReader) Seconds(key string, defSeconds int) time.Duration {
	return time.Duration(r.Int(key, defSeconds)) * time.Second
}

// Err returns every malformed variable seen so far, joined.
func (r *envReader) Err() error {
	return errors.Join(r.errs...)
}
