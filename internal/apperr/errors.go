// Package apperr defines the error taxonomy shared by registries, stores and transports.
package apperr

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidReference = errors.New("invalid reference")
	ErrConflict         = errors.New("conflict")
	ErrUnresolvable     = errors.New("no resolvable extent")
	ErrInvalidState     = errors.New("invalid state")
	ErrInvalidArgument  = errors.New("invalid argument")
)

// Stable codes carried in the response envelope.
const (
	CodeNotFound         = "not_found"
	CodeInvalidReference = "invalid_reference"
	CodeConflict         = "conflict"
	CodeUnresolvable     = "unresolvable"
	CodeInvalidState     = "invalid_state"
	CodeInvalidArgument  = "invalid_argument"
	CodeInternal         = "internal"
)

var codes = []struct {
	err  error
	code string
}{
	{ErrNotFound, CodeNotFound},
	{ErrInvalidReference, CodeInvalidReference},
	{ErrConflict, CodeConflict},
	{ErrUnresolvable, CodeUnresolvable},
	{ErrInvalidState, CodeInvalidState},
	{ErrInvalidArgument, CodeInvalidArgument},
}

// Code maps err onto its envelope code. Unknown errors are "internal".
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// FromCode returns the sentinel for code, or nil for unknown codes.
func FromCode(code string) error {
	for _, c := range codes {
		if c.code == code {
			return c.err
		}
	}
	return nil
}
