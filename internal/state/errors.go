package state

import "errors"

var (
	// ErrEmptyID is returned when a record has no id.
	ErrEmptyID = errors.New("empty id")

	// ErrDuplicateID is returned by Add when the id already exists.
	ErrDuplicateID = errors.New("duplicate id")

	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")
)

// ErrClosed is returned by Flush after Close.
var ErrClosed = errors.New("manager closed")
