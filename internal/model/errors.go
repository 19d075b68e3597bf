package model

import "errors"

// Sentinel errors shared by stores, services and handlers. Callers wrap them
// with context and match with errors.Is.
var (
	// ErrNotFound is returned when a tour, registration or admin email does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState is returned when an action is not allowed for the current status.
	ErrInvalidState = errors.New("invalid state for this operation")

	// ErrCapacity is returned when a seat change would leave 0..capacity.
	ErrCapacity = errors.New("seat count out of range")

	// ErrUnauthorized is returned when a caller lacks admin rights.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidInput wraps request validation failures.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAlreadyExists is returned on unique constraint conflicts.
	ErrAlreadyExists = errors.New("already exists")
)
