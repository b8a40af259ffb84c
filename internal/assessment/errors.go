package assessment

import (
	"errors"
	"fmt"
)

// Kind classifies engine failures so callers can render a message per kind.
type Kind string

const (
	KindNotFound            Kind = "not_found"
	KindInvalidState        Kind = "invalid_state"
	KindAlreadyDeployed     Kind = "already_deployed"
	KindInvalidItem         Kind = "invalid_item"
	KindNotDeployed         Kind = "not_deployed"
	KindNoSubmission        Kind = "no_submission"
	KindNotManuallyGradable Kind = "not_manually_gradable"
	KindStorageUnavailable  Kind = "storage_unavailable"
)

// Error is the typed failure returned by every engine operation.
type Error struct {
	Kind Kind
	Op   string // e.g. "deploy", "submit"
	ID   string // assessment id, when known
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.ID != "" {
		msg += " (" + e.ID + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so errors.Is(err, ErrNotFound) works on any wrapped
// engine error. AlreadyDeployed also matches ErrInvalidState.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil {
		return false
	}
	if e.Kind == t.Kind {
		return true
	}
	return e.Kind == KindAlreadyDeployed && t.Kind == KindInvalidState
}

// Sentinels for errors.Is.
var (
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrInvalidState        = &Error{Kind: KindInvalidState}
	ErrAlreadyDeployed     = &Error{Kind: KindAlreadyDeployed}
	ErrInvalidItem         = &Error{Kind: KindInvalidItem}
	ErrNotDeployed         = &Error{Kind: KindNotDeployed}
	ErrNoSubmission        = &Error{Kind: KindNoSubmission}
	ErrNotManuallyGradable = &Error{Kind: KindNotManuallyGradable}
	ErrStorageUnavailable  = &Error{Kind: KindStorageUnavailable}
)

// Errf builds an engine error of the given kind.
func Errf(kind Kind, op, id, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, ID: id, Msg: fmt.Sprintf(format, args...)}
}

// StorageErr wraps a persistence failure. Already-typed engine errors pass
// through untouched.
func StorageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindStorageUnavailable, Op: op, Msg: "storage unavailable", Err: err}
}

// KindOf reports the engine kind of err, or "" for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
