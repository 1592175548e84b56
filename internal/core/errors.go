// Package core defines sentinel errors.
package core

import (
	"errors"
	"fmt"
)

// Sentinel errors. Codecs wrap them with fmt.Errorf("%w: ...") so callers
// match with errors.Is.
var (
	// ErrMalformedFrame means decode got bytes that do not have the shape
	// the matching encode produces.
	ErrMalformedFrame = errors.New("osisim: malformed frame")

	// ErrDecode means the presentation layer could not rebuild a value.
	ErrDecode = errors.New("osisim: decode failed")

	// ErrUnsupportedInput means encode got a payload kind or value it
	// cannot serialize.
	ErrUnsupportedInput = errors.New("osisim: unsupported input")
)

// LayerError records which layer failed and in which direction.
type LayerError struct {
	Layer     Layer
	Direction Direction
	Codec     string
	Err       error
}

func (e *LayerError) Error() string {
	return fmt.Sprintf("%s (%s) %s: %v", e.Layer, e.Codec, e.Direction, e.Err)
}

func (e *LayerError) Unwrap() error {
	return e.Err
}

// ErrorKind maps an error onto a short label used by metrics and logs.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMalformedFrame):
		return "malformed_frame"
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, ErrUnsupportedInput):
		return "unsupported_input"
	default:
		return "other"
	}
}
