package form

import "errors"

var (
	// ErrUnknownField is returned for names that are not form fields.
	ErrUnknownField = errors.New("unknown field")

	// ErrFieldUnavailable is returned for fields the active variant does not expose.
	ErrFieldUnavailable = errors.New("field not available for this pipeline")

	// ErrInvalidValue is returned when a raw value cannot be parsed for its kind.
	ErrInvalidValue = errors.New("invalid field value")

	// ErrInvalidSpec is returned for inconsistent field declarations or overrides.
	ErrInvalidSpec = errors.New("invalid field spec")
)
