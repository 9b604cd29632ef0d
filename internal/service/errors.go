package service

import "errors"

var (
	// ErrValidation marks malformed or missing input. The concrete error is a *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCredential covers wrong passwords, unknown usernames and unknown RFIDs alike.
	ErrInvalidCredential = errors.New("invalid credentials")
	// ErrInvalidToken covers missing, malformed, expired and orphaned tokens alike.
	ErrInvalidToken = errors.New("invalid token")
	// ErrUnauthorized is returned when a valid identity lacks the required role.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrOutOfWindow rejects a toggle outside the admission hours.
	ErrOutOfWindow = errors.New("outside admission window")
	// ErrConflict is returned when registering a user that collides with an existing one.
	ErrConflict = errors.New("user already exists")
	// ErrNotFound is returned when a deletion target does not exist.
	ErrNotFound = errors.New("user not found")
)

// ValidationError carries the message of the first rejected field.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}
