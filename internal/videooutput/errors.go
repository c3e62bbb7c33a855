package videooutput

import (
	"errors"
	"fmt"

	"videooutputd/internal/geometry"
)

var (
	ErrSchemaValidation  = errors.New("schema validation failed")
	ErrInvalidParameters = errors.New("invalid parameters")
	ErrInvalidSink       = fmt.Errorf("%w: invalid sink", ErrInvalidParameters)
	ErrInvalidClient     = fmt.Errorf("%w: invalid client", ErrInvalidParameters)
	ErrAlreadyRegistered = fmt.Errorf("%w: already registered", ErrInvalidParameters)
	ErrNotRegistered     = fmt.Errorf("%w: not registered", ErrInvalidParameters)
	ErrDuplicateZOrder   = fmt.Errorf("%w: two windows cannot have the same zOrder", ErrInvalidParameters)
	ErrOutOfRange        = fmt.Errorf("%w: value out of range", ErrInvalidParameters)
	ErrVideoNotConnected = errors.New("video not connected")
	ErrHAL               = errors.New("driver error while executing the command")
	ErrNotImplemented    = errors.New("not implemented")

	ErrDownscaleLimit = errors.New("downscale limit exceeded")
	ErrUpscaleLimit   = errors.New("upscale limit exceeded")
)

// ScaleLimitError reports a placement beyond the sink's scaling bounds.
type ScaleLimitError struct {
	Upscale   bool
	Bound     geometry.Size
	Requested geometry.Size
}

func (e *ScaleLimitError) Error() string {
	if e.Upscale {
		return fmt.Sprintf("unable to upscale above %d,%d, requested %d,%d", e.Bound.W, e.Bound.H, e.Requested.W, e.Requested.H)
	}
	return fmt.Sprintf("unable to downscale below %d,%d, requested %d,%d", e.Bound.W, e.Bound.H, e.Requested.W, e.Requested.H)
}

func (e *ScaleLimitError) Unwrap() error {
	if e.Upscale {
		return ErrUpscaleLimit
	}
	return ErrDownscaleLimit
}

// halError wraps a driver failure so callers can match ErrHAL.
func halError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrHAL, op, err)
}

// Error codes on the wire.
const (
	CodeUnknown           = 1
	CodeSchemaValidation  = 3
	CodeInvalidParameters = 4
	CodeNotImplemented    = 10
	CodeHALError          = 20
	CodeVideoNotConnected = 100
	CodeDownscaleLimit    = 102
	CodeUpscaleLimit      = 103
)

// ErrorCode maps err to its wire error code.
func ErrorCode(err error) int {
	switch {
	case errors.Is(err, ErrSchemaValidation):
		return CodeSchemaValidation
	case errors.Is(err, ErrInvalidParameters):
		return CodeInvalidParameters
	case errors.Is(err, ErrNotImplemented):
		return CodeNotImplemented
	case errors.Is(err, ErrHAL):
		return CodeHALError
	case errors.Is(err, ErrVideoNotConnected):
		return CodeVideoNotConnected
	case errors.Is(err, ErrDownscaleLimit):
		return CodeDownscaleLimit
	case errors.Is(err, ErrUpscaleLimit):
		return CodeUpscaleLimit
	}
	return CodeUnknown
}
