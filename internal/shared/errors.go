package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrLockHeld occurs when another request holds the critical section.
	ErrLockHeld = errors.New("lock held by another request")
)
