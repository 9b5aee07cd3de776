package resolver

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingValue is returned when no source produced a value and no
	// default was supplied.
	ErrMissingValue = errors.New("missing required value")
	// ErrEmptyKey is returned when the request key is empty or blank.
	ErrEmptyKey = errors.New("key must not be empty")
	// ErrInvalidType is returned when the requested target type is unknown.
	ErrInvalidType = errors.New("unknown target type")
	// ErrConversion matches any *ConversionError via errors.Is.
	ErrConversion = errors.New("type conversion failed")
)

// ConversionError reports an environment string that could not be coerced to
// the requested target type. It is terminal for the lookup: the resolver does
// not fall through to a lower-priority source.
type ConversionError struct {
	Key  string
	Raw  string
	Type ValueType
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot convert %q to %s for key %q", e.Raw, e.Type, e.Key)
}

func (e *ConversionError) Unwrap() error { return ErrConversion }
