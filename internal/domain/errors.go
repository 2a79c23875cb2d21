package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist, or exists under a different tenant.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. fewer than two stops, latitude out of range).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrInvalidTransition is returned when a service state change is not one of
// the allowed lifecycle edges (e.g. finished -> scheduled).
// Handlers should map this to HTTP 409 Conflict.
var ErrInvalidTransition = errors.New("invalid transition")

// ErrServiceNotActive is returned when a position is reported against a
// service that is not in progress.
// Handlers should map this to HTTP 409 Conflict.
var ErrServiceNotActive = errors.New("service not active")

// ErrConflict is returned by repo functions when a write loses a race on a
// unique key. Services retry it; it only reaches a handler once retries are
// exhausted.
var ErrConflict = errors.New("conflict")
