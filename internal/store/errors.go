package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when no artifact exists for a key
var ErrNotFound = errors.New("artifact not found")

// KeyError represents a malformed key
type KeyError struct {
	Key     Key
	Message string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("invalid key %s: %s", e.Key.String(), e.Message)
}

// OpError wraps a backend failure with the operation and key
type OpError struct {
	Op    string
	Key   Key
	Cause error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("store: %s %s: %v", e.Op, e.Key.String(), e.Cause)
}

func (e *OpError) Unwrap() error {
	return e.Cause
}
