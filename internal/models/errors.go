package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrUnauthenticated means no identity was available at connect time.
	// Fatal to that connect attempt; never retried automatically.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// ConnectionError is a transport-level failure during connect or handshake.
// It drives the bounded reconnect loop before surfacing as a persistent
// Error status.
type ConnectionError struct {
	Attempt int
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection attempt %d failed: %v", e.Attempt, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// PageFetchError means a page load failed and the local collection state was
// left untouched. Callers may retry LoadMore.
type PageFetchError struct {
	Page int
	Err  error
}

func (e *PageFetchError) Error() string {
	return fmt.Sprintf("failed to fetch page %d: %v", e.Page, e.Err)
}

func (e *PageFetchError) Unwrap() error { return e.Err }

// MutationError means the authoritative network call behind an optimistic
// operation failed. Local state has already been rolled back when the caller
// sees this.
type MutationError struct {
	Key string
	Err error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("mutation %q rejected: %v", e.Key, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }
