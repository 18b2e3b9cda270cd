package qrstyle

import (
	"errors"
	"fmt"
)

var (
	// ErrPayloadTooLarge is returned when the payload does not fit into a symbol
	// at the requested error correction level.
	ErrPayloadTooLarge = errors.New("payload too large for error correction level")

	// ErrLogoLoadFailed marks a logo that could not be fetched or decoded.
	ErrLogoLoadFailed = errors.New("logo load failed")
	// ErrAssetUnavailable marks an asset store failure.
	ErrAssetUnavailable = errors.New("asset unavailable")
	// ErrInvalidStyle marks out of range style values.
	ErrInvalidStyle = errors.New("invalid style")
	// ErrEncodeFailed marks a failure of the output encoder.
	ErrEncodeFailed = errors.New("encode failed")
)

// SymbolError is returned by a SymbolRenderer when the symbol could not be built.
type SymbolError struct {
	Level ECLevel
	Err   error
}

func (e *SymbolError) Error() string {
	return fmt.Sprintf("symbol (ecc %s): %v", e.Level, e.Err)
}

func (e *SymbolError) Unwrap() error { return e.Err }

// RenderError is a failure of the render pipeline. Kind is one of
// ErrLogoLoadFailed, ErrAssetUnavailable, ErrInvalidStyle or ErrEncodeFailed,
// and both Kind and Err can be matched with errors.Is.
type RenderError struct {
	Kind error
	Err  error
}

func (e *RenderError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

func (e *RenderError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func invalidStyle(format string, args ...any) error {
	return &RenderError{Kind: ErrInvalidStyle, Err: fmt.Errorf(format, args...)}
}
