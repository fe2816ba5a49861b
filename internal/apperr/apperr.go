// Package apperr defines the closed set of error kinds produced where failures originate.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	KindAuth       Kind = "auth"
	KindNetwork    Kind = "network"
	KindTimeout    Kind = "timeout"
	KindServer     Kind = "server"
	KindQuota      Kind = "quota"
	KindForbidden  Kind = "forbidden"
	KindValidation Kind = "validation"
	KindMalformed  Kind = "malformed"
	KindNotFound   Kind = "not_found"
	KindDuplicate  Kind = "duplicate"
	KindNoEntries  Kind = "no_entries"
	KindInternal   Kind = "internal"
)

// Error carries a kind alongside the operation that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E wraps err with a kind. An err that already carries a kind keeps it.
func E(kind Kind, op string, err error) error {
	if err == nil {
		err = errors.New(string(kind))
	}
	var existing *Error
	if errors.As(err, &existing) {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a kinded error from a format string.
func Errorf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of err, or KindInternal when err is unclassified.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err has the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Retryable reports whether err is transient infrastructure failure.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindNetwork, KindTimeout, KindServer:
		return true
	}
	return false
}

// Expected reports whether err is a signal rather than a failure.
func Expected(err error) bool {
	switch KindOf(err) {
	case KindDuplicate, KindNoEntries:
		return true
	}
	return false
}

// Duplicate signals that an equivalent check-in already exists in the window.
func Duplicate(op string, trigger string) error {
	return Errorf(KindDuplicate, op, "check-in %q already raised within window", trigger)
}

// NoEntries signals that the requested week has no diary entries.
func NoEntries(op string) error {
	return Errorf(KindNoEntries, op, "no entries this week")
}

// Unauthenticated signals a missing owner identity.
func Unauthenticated(op string) error {
	return Errorf(KindAuth, op, "no authenticated user")
}
