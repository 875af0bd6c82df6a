// Package apperror holds the error kinds shared by the chat core and the
// HTTP boundary. Every error that leaves a service wraps exactly one kind.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrAuthentication = errors.New("authentication failed")
	ErrNotFound       = errors.New("not found")
	ErrStore          = errors.New("store failure")
	ErrModel          = errors.New("model failure")

	ErrValidation     = errors.New("validation failed")
	ErrForbidden      = errors.New("forbidden")
	ErrTurnInProgress = errors.New("turn already in progress")
	ErrTurnAbandoned  = errors.New("turn abandoned")
	ErrRateLimited    = errors.New("rate limited")
)

// Error carries the failing operation next to its kind and cause.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func wrap(kind error, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Authentication(op string) error { return wrap(ErrAuthentication, op, nil) }

func NotFound(op string) error { return wrap(ErrNotFound, op, nil) }

func Store(op string, err error) error { return wrap(ErrStore, op, err) }

func Model(op string, err error) error { return wrap(ErrModel, op, err) }

func Validation(op string, err error) error { return wrap(ErrValidation, op, err) }

func Forbidden(op string) error { return wrap(ErrForbidden, op, nil) }

// KindOf returns the taxonomy kind carried by err, or nil for foreign errors.
func KindOf(err error) error {
	for _, kind := range []error{
		ErrAuthentication, ErrNotFound, ErrStore, ErrModel,
		ErrValidation, ErrForbidden, ErrTurnInProgress, ErrTurnAbandoned, ErrRateLimited,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
