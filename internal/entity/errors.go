package entity

import (
	"errors"
	"fmt"
	"strings"
)

// InputError reports caller input that cannot be projected or assembled.
// It is always raised before any network I/O.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

type FetchErrorKind string

const (
	FetchNotFound       FetchErrorKind = "not_found"
	FetchServerError    FetchErrorKind = "server_error"
	FetchTransportError FetchErrorKind = "transport_error"
	FetchDecodeError    FetchErrorKind = "decode_error"
)

// FetchError reports a tile that could not be obtained.
type FetchError struct {
	Tile       TileIndex
	Kind       FetchErrorKind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetch tile %s: %s", e.Tile, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// AssemblyError reports a mosaic that could not be completed.
type AssemblyError struct {
	Failures []*FetchError
}

func (e *AssemblyError) Error() string {
	if len(e.Failures) == 1 {
		return "assemble mosaic: " + e.Failures[0].Error()
	}
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Tile.String())
	}
	return fmt.Sprintf("assemble mosaic: %d tiles failed: %s", len(e.Failures), strings.Join(parts, ", "))
}

func (e *AssemblyError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f)
	}
	return errs
}

// AsFetchError is errors.As for *FetchError.
func AsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
