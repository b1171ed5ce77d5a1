package entities

import (
	"errors"
	"fmt"
)

// ErrNotFound matches every NotFoundError
var ErrNotFound = errors.New("entity not found")

// NotFoundError is returned when a nominee or position does not exist
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// Is makes errors.Is(err, ErrNotFound) succeed
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
