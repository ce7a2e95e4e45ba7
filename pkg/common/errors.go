package common

import (
	"github.com/pkg/errors"
)

var (
	// ErrOperationAborted is returned when the operation was aborted e.g. by a shutdown signal.
	ErrOperationAborted = errors.New("operation was aborted")
	// ErrBlockNotFound is returned when a block was not found.
	ErrBlockNotFound = errors.New("block not found")
	// ErrNodeNotSynced is returned when the node is not synchronized.
	ErrNodeNotSynced = errors.New("node is not synchronized")
	// ErrMilestoneOutOfSequence is returned when a milestone is applied out of sequence with the ledger index.
	ErrMilestoneOutOfSequence = errors.New("milestone out of sequence")
)

// CriticalError is an error which stops the confirmation of milestones.
// The node must not advance the ledger index and has to retry the same
// milestone from the same pre-state once the cause is resolved.
type CriticalError struct {
	Err error
}

func (e *CriticalError) Error() string {
	return e.Err.Error()
}

func (e *CriticalError) Unwrap() error {
	return e.Err
}

// NewCriticalError wraps the given error as critical error.
func NewCriticalError(err error) *CriticalError {
	return &CriticalError{Err: err}
}

// IsCriticalError checks if the given error is a critical error.
func IsCriticalError(err error) bool {
	var criticalError *CriticalError

	return errors.As(err, &criticalError)
}

// SoftError is an error that is recovered locally and surfaced
// only as diagnostic counters and logs.
type SoftError struct {
	Err error
}

func (e *SoftError) Error() string {
	return e.Err.Error()
}

func (e *SoftError) Unwrap() error {
	return e.Err
}

// NewSoftError wraps the given error as soft error.
func NewSoftError(err error) *SoftError {
	return &SoftError{Err: err}
}

// IsSoftError checks if the given error is a soft error.
func IsSoftError(err error) bool {
	var softError *SoftError

	return errors.As(err, &softError)
}
