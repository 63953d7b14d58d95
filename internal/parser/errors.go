package parser

import "errors"

var (
	// ErrInvalidFormat is returned when the input is not a graph document.
	ErrInvalidFormat = errors.New("invalid input format")

	// ErrEmptyInput is returned when the input is empty.
	ErrEmptyInput = errors.New("empty input")

	// ErrUnsupportedDialect is returned for unrecognized dialect tags.
	ErrUnsupportedDialect = errors.New("unsupported dialect")

	// ErrMissingProperty is returned when a required node property is
	// absent.
	ErrMissingProperty = errors.New("missing required property")
)
