package apperrors

import "errors"

// Core error kinds. The HTTP layer maps these 1:1 to status codes;
// everything else surfaces as an internal error.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrConflict          = errors.New("conflict")
	ErrAlreadyExists     = errors.New("already exists")
	ErrPollClosed        = errors.New("poll is closed")
	ErrInvalidTransition = errors.New("invalid status transition")
)
