package tasmota

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedJSON   = errors.New("malformed json")
	ErrMissingField    = errors.New("missing required field")
	ErrMalformedUptime = errors.New("malformed uptime")
	ErrUnsupportedKind = errors.New("unsupported kind")
)

// DecodeError is returned for any payload that cannot be turned into a Record.
// It wraps one of ErrMalformedJSON, ErrMissingField or ErrMalformedUptime.
type DecodeError struct {
	Kind  Kind
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("decoding %s payload: %s: %v", e.Kind, e.Field, e.Err)
	}
	return fmt.Sprintf("decoding %s payload: %v", e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

type UnsupportedKindError struct {
	Kind Kind
}

func (e *UnsupportedKindError) Error() string {
	return fmt.Sprintf("%v: %q", ErrUnsupportedKind, string(e.Kind))
}

func (e *UnsupportedKindError) Is(target error) bool {
	return target == ErrUnsupportedKind
}
