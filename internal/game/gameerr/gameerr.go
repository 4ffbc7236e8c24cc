// Package gameerr defines the error taxonomy shared by the combat engine,
// the progression rules, and the transport layer.
//
// Every error returned across a package boundary wraps exactly one of the
// sentinels below so callers can classify it with errors.Is.
package gameerr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed input: unknown skill, action, class, item, or location ids.
	ErrValidation = errors.New("validation error")
	// ErrAuthorization marks an actor attempting to drive a session it does not own.
	ErrAuthorization = errors.New("authorization error")
	// ErrInsufficientResource marks an mp or inventory shortfall. The action is rejected unapplied.
	ErrInsufficientResource = errors.New("insufficient resource")
	// ErrState marks an action submitted against a terminal, missing, or conflicting state.
	ErrState = errors.New("state error")
	// ErrPersistence marks a player record store failure.
	ErrPersistence = errors.New("persistence error")
	// ErrNotFound marks a missing player record.
	ErrNotFound = errors.New("not found")
)

// Validation returns an error wrapping ErrValidation.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Authorization returns an error wrapping ErrAuthorization.
func Authorization(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrAuthorization, fmt.Sprintf(format, args...))
}

// Insufficient returns an error wrapping ErrInsufficientResource.
func Insufficient(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInsufficientResource, fmt.Sprintf(format, args...))
}

// State returns an error wrapping ErrState.
func State(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrState, fmt.Sprintf(format, args...))
}

// NotFound returns an error wrapping ErrNotFound.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Persistence wraps a store failure so it matches both ErrPersistence and the cause.
//
// Postcondition: errors.Is(result, ErrPersistence) and errors.Is(result, err) both hold.
func Persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
