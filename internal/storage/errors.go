package storage

import "errors"

// Storage errors shared by all backends.
var (
	// ErrNotFound is returned when a requested run does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a sample time or run ID is already stored.
	// Flux archives and run history are append-only.
	ErrDuplicateKey = errors.New("duplicate key: append-only store does not allow updates")

	// ErrInvalidInput is returned for nil runs, empty IDs and non-finite sample times.
	ErrInvalidInput = errors.New("invalid input")
)
