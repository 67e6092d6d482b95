package storage

import "errors"

var (
	// ErrNotFound is returned when a deck, card or source does not exist.
	ErrNotFound = errors.New("storage: not found")
	// ErrReadOnly is returned when an edit targets a hosted deck.
	ErrReadOnly = errors.New("storage: hosted decks are read-only")
)
