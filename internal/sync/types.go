package sync

import (
	"context"
	"time"

	"github.com/danieljhkim/sourcesync/internal/config"
	"github.com/danieljhkim/sourcesync/internal/metadata"
	"github.com/danieljhkim/sourcesync/internal/retrieve"
)

// ExitCodeStillRunning is returned when a retrieve job has not finished
// within the wait time.
const ExitCodeStillRunning = 69

// PullRequest contains parameters for pulling remote changes.
type PullRequest struct {
	// Org is the target org
	Org *config.OrgAuth

	// Project is the local project
	Project *config.Project

	// ForceOverwrite pulls even when conflicts exist, overwriting local changes
	ForceOverwrite bool

	// Wait is how long to poll the retrieve job before giving up
	Wait time.Duration

	// APIVersion overrides the org's API version for the retrieve call
	APIVersion string

	// Listener receives retrieve lifecycle events (optional)
	Listener PullListener
}

// PullResult contains the result of a pull operation.
type PullResult struct {
	// Retrieve is the retrieve outcome, nil when nothing needed retrieving
	Retrieve *retrieve.Result

	// Deleted lists files removed because their components were deleted remotely
	Deleted []metadata.FileResponse
}

// ExitCode maps the retrieve status to a process exit code.
// ok is false when no retrieve ran and the caller should use its default.
func (r *PullResult) ExitCode() (code int, ok bool) {
	if r == nil || r.Retrieve == nil {
		return 0, false
	}
	return ExitCodeForStatus(r.Retrieve.Status), true
}

// ExitCodeForStatus maps a retrieve status to a process exit code.
// A partial success still writes what was retrieved but exits 1.
func ExitCodeForStatus(status retrieve.RequestStatus) int {
	switch status {
	case retrieve.StatusSucceeded:
		return 0
	case retrieve.StatusInProgress, retrieve.StatusPending, retrieve.StatusCanceling:
		return ExitCodeStillRunning
	default:
		return 1
	}
}

// ClearTrackingRequest contains parameters for clearing tracking state.
type ClearTrackingRequest struct {
	// Org is the org whose tracking is cleared
	Org *config.OrgAuth

	// Project is the local project
	Project *config.Project

	// NoPrompt skips confirmation
	NoPrompt bool

	// Confirm asks the user to proceed; required unless NoPrompt is set
	Confirm func(ctx context.Context) (bool, error)
}

// ClearTrackingResult contains the result of clearing tracking state.
type ClearTrackingResult struct {
	// ClearedFiles are the tracking files that were removed
	ClearedFiles []string `json:"clearedFiles"`

	// Declined is true when the user answered no to the prompt
	Declined bool `json:"-"`
}
