// Package repository defines the data access layer and the error
// types reused across repositories. These sentinel values allow
// handlers and the booking service to distinguish failure
// scenarios: ErrForbidden maps to HTTP 403, ErrConflict to 409
// and the NotFound family, ErrEventNotConfigured included, to 404.
package repository

import "errors"

// ErrUserNotFound is returned when no user row matches the given
// id or email.
var ErrUserNotFound = errors.New("user not found")

// ErrEmailExists is returned when registration is attempted with
// an email address that already has an account.
var ErrEmailExists = errors.New("email already registered")

// ErrEventNotConfigured is returned when a booking operation runs
// before an admin has created the event record.
var ErrEventNotConfigured = errors.New("event not configured")

// ErrBookingNotFound is returned when no booking row matches the
// given id or reference.
var ErrBookingNotFound = errors.New("booking not found")

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an update cannot be performed
// because of conflicting state, such as adding a plus-one to a
// booking that already has one, or when an optimistic version
// check loses a concurrent race. Handlers should translate this
// into an HTTP 409 response.
var ErrConflict = errors.New("conflict")
