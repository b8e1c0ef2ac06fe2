package usemin

import (
	"errors"
	"fmt"
)

var (
	// ErrParse is wrapped by every [ParseError]
	ErrParse = errors.New("usemin_parse")

	// ErrUnresolvedPattern is wrapped by every [UnresolvedPatternError]
	ErrUnresolvedPattern = errors.New("usemin_unresolved_pattern")

	// ErrUnsupportedInput is wrapped by every [UnsupportedInputError]
	ErrUnsupportedInput = errors.New("usemin_unsupported_input")
)

// ParseError reports a malformed or unterminated build marker.
type ParseError struct {
	Marker string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("ParseError(marker='%s'): %s", e.Marker, e.Reason)
}

func (e *ParseError) Unwrap() error { return ErrParse }

// UnresolvedPatternError reports an asset pattern with include patterns
// that matched no file.
type UnresolvedPatternError struct {
	Pattern string
	Marker  string
}

func (e *UnresolvedPatternError) Error() string {
	return fmt.Sprintf("UnresolvedPatternError(marker='%s'): pattern '%s' matched no file", e.Marker, e.Pattern)
}

func (e *UnresolvedPatternError) Unwrap() error { return ErrUnresolvedPattern }

// UnsupportedInputError reports a file that arrived as an open stream
// instead of materialized bytes.
type UnsupportedInputError struct {
	Path string
}

func (e *UnsupportedInputError) Error() string {
	return fmt.Sprintf("UnsupportedInputError(path='%s'): streams are not supported", e.Path)
}

func (e *UnsupportedInputError) Unwrap() error { return ErrUnsupportedInput }

type errorWrite struct {
	err        error
	target     string
	originator string
}

func (e errorWrite) Error() string {
	return fmt.Errorf("WriteError(target='%s',originator='%s'): %w", e.target, e.originator, e.err).Error()
}

func (e errorWrite) Unwrap() error { return e.err }
