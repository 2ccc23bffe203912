package repository

import "errors"

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrNotPending is returned when a queue entry has already left PENDING.
	ErrNotPending = errors.New("email is no longer pending")
)
