package storage

import (
	"github.com/pkg/errors"
)

var (
	// ErrMilestoneNotFound is returned when a milestone was not found in the storage.
	ErrMilestoneNotFound = errors.New("milestone not found")
)

// ErrDatabaseError is a marker for errors that originate in the persistence layer.
type ErrDatabaseError struct {
	Inner error
}

func NewDatabaseError(cause error) *ErrDatabaseError {
	return &ErrDatabaseError{Inner: cause}
}

func (e ErrDatabaseError) Error() string {
	return "database error: " + e.Inner.Error()
}

func (e ErrDatabaseError) Unwrap() error {
	return e.Inner
}
