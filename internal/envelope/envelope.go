// Package envelope is the uniform result wrapper every API response and
// gateway call uses: {success, payload, message, code}.
package envelope

import (
	"errors"

	"github.com/starford/anchorage/internal/apperr"
)

// Result carries either a payload or a failure description.
type Result[T any] struct {
	Success bool   `json:"success"`
	Payload T      `json:"payload"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
	// Version is the session version the payload was computed at, when known.
	Version uint64 `json:"version,omitempty"`
}

// OK wraps a successful payload.
func OK[T any](payload T) Result[T] {
	return Result[T]{Success: true, Payload: payload}
}

// Fail describes err.
func Fail[T any](err error) Result[T] {
	return Result[T]{Message: err.Error(), Code: apperr.Code(err)}
}

// Err turns a failed result back into an error that matches the original
// sentinel under errors.Is. It returns nil for successful results.
func (r Result[T]) Err() error {
	if r.Success {
		return nil
	}
	msg := r.Message
	if msg == "" {
		msg = "request failed"
	}
	if sentinel := apperr.FromCode(r.Code); sentinel != nil {
		return &remoteError{msg: msg, sentinel: sentinel}
	}
	return errors.New(msg)
}

// Unwrap returns the payload or the failure.
func (r Result[T]) Unwrap() (T, error) {
	return r.Payload, r.Err()
}

type remoteError struct {
	msg      string
	sentinel error
}

func (e *remoteError) Error() string { return e.msg }

func (e *remoteError) Unwrap() error { return e.sentinel }

