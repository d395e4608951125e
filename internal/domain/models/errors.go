package models

import "errors"

var (
	// ErrInvalidInput marks malformed caller input (bad URL, empty sender...)
	ErrInvalidInput = errors.New("invalid input")
	// ErrStoreUnavailable marks a failed read or write against a backing store
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("not found")
)
