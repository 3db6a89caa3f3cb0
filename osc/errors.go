package osc

import (
	"errors"
	"fmt"
	"reflect"
)

// Sentinel errors. Decode-time data errors wrap ErrMalformed or ErrUnknownTag
// and are recoverable; see IsParsingError.
var (
	ErrUnknownType = errors.New("unknown argument type")
	ErrUnknownTag  = errors.New("unknown type tag")
	ErrMalformed   = errors.New("malformed packet")
	ErrUnsupported = errors.New("unsupported operation")
	ErrNestedArray = errors.New("nested arrays are not supported")

	// ErrInvalidAddress and ErrInvalidString are returned when encoding a
	// value that has no faithful wire form.
	ErrInvalidAddress = errors.New("invalid OSC address")
	ErrInvalidString  = errors.New("string contains a NUL byte")

	// ErrStreamClosed is returned by Stream.Receive after Close.
	ErrStreamClosed = errors.New("stream closed")
)

// UnknownTypeError is returned when a value has no registered codec.
type UnknownTypeError struct {
	Type reflect.Type
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("%s: %v", ErrUnknownType, e.Type)
}

// Is reports whether target is ErrUnknownType.
func (e *UnknownTypeError) Is(target error) bool {
	return target == ErrUnknownType
}

// UnknownTagError is returned when a type tag character has no registered codec.
type UnknownTagError struct {
	Tag byte
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnknownTag, e.Tag)
}

// Is reports whether target is ErrUnknownTag.
func (e *UnknownTagError) Is(target error) bool {
	return target == ErrUnknownTag
}

// InvariantError is the panic value used when a builder invariant is broken.
// It signals a programming error, not bad input.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string {
	return "osc: invariant violated: " + e.Msg
}

func invariant(format string, args ...interface{}) {
	panic(&InvariantError{Msg: fmt.Sprintf(format, args...)})
}

// IsParsingError reports whether err was caused by bad input data, as
// opposed to a programming or I/O error.
func IsParsingError(err error) bool {
	return errors.Is(err, ErrMalformed) || errors.Is(err, ErrUnknownTag)
}

// malformed wraps ErrMalformed with the calling function's context.
func malformed(fn, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w: %s", fn, ErrMalformed, fmt.Sprintf(format, args...))
}

func unsupported(fn, what string) error {
	return fmt.Errorf("%s: %w: %s", fn, ErrUnsupported, what)
}
