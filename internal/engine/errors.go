package engine

import (
	"errors"
	"fmt"
)

// Kind is the machine-readable classification of an engine failure.
type Kind string

const (
	// KindValidation covers missing or unusable caller input.
	KindValidation Kind = "validation"
	// KindExtraction covers failures of the document access layer.
	KindExtraction Kind = "extraction"
	// KindLocate covers page locator failures.
	KindLocate Kind = "locate"
	// KindInternal covers broken algorithmic invariants.
	KindInternal Kind = "internal"
)

// Error is the structured failure type a comparison run surfaces. Partial
// results computed before the failure are discarded by the orchestrators.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// errf builds an Error without a cause.
func errf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// wrapf builds an Error around a cause.
func wrapf(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf reports the Kind carried by err, or KindInternal when err is not an
// engine error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
