package sync

import (
	"errors"
	"fmt"

	"github.com/danieljhkim/sourcesync/internal/tracking"
)

var (
	// ErrConflict is returned when local and remote changes overlap.
	ErrConflict = errors.New("source conflicts detected")

	// ErrRemoteRetrieve is returned when the retrieve job could not be run.
	ErrRemoteRetrieve = errors.New("remote retrieve failed")

	// ErrIncompatibleState is returned when tracking files cannot be read.
	ErrIncompatibleState = errors.New("incompatible tracking state")
)

// ConflictError lists the components changed on both sides.
type ConflictError struct {
	Conflicts []tracking.Conflict
}

func (e *ConflictError) Error() string {
	if len(e.Conflicts) == 1 {
		return fmt.Sprintf("%s: %s changed both locally and in the org", ErrConflict, e.Conflicts[0].Component)
	}
	return fmt.Sprintf("%s: %d components changed both locally and in the org", ErrConflict, len(e.Conflicts))
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// RemoteRetrieveError wraps a failure to submit or poll a retrieve job.
type RemoteRetrieveError struct {
	Err error
}

func (e *RemoteRetrieveError) Error() string {
	return fmt.Sprintf("%s: %v", ErrRemoteRetrieve, e.Err)
}

func (e *RemoteRetrieveError) Unwrap() []error {
	return []error{ErrRemoteRetrieve, e.Err}
}

// IncompatibleStateError wraps a tracking format validation failure.
type IncompatibleStateError struct {
	Err error
}

func (e *IncompatibleStateError) Error() string {
	return fmt.Sprintf("%s: %v", ErrIncompatibleState, e.Err)
}

func (e *IncompatibleStateError) Unwrap() []error {
	return []error{ErrIncompatibleState, e.Err}
}
