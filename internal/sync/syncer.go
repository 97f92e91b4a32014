package sync

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/danieljhkim/sourcesync/internal/metadata"
	"github.com/danieljhkim/sourcesync/internal/retrieve"
	"github.com/danieljhkim/sourcesync/internal/tracking"
)

// ChangeProvider is the source tracking engine used by pull and clear.
type ChangeProvider interface {
	// Conflicts returns components changed both locally and remotely.
	Conflicts(ctx context.Context) ([]tracking.Conflict, error)

	// GetChanges returns tracked changes matching filter.
	GetChanges(ctx context.Context, filter tracking.Filter) ([]tracking.Change, error)

	// DeleteFilesAndUpdateTracking removes the files of changes and stages
	// the tracking update.
	DeleteFilesAndUpdateTracking(ctx context.Context, changes []tracking.Change) ([]metadata.FileResponse, error)

	// RemoteNonDeletesAsComponentSet returns remote adds and modifies.
	RemoteNonDeletesAsComponentSet(ctx context.Context) (*metadata.ComponentSet, error)

	// UpdateTrackingFromRetrieve persists staged and retrieved tracking state.
	UpdateTrackingFromRetrieve(ctx context.Context, result *retrieve.Result) error

	// ValidateTrackingFormat fails if tracking files are unreadable by this version.
	ValidateTrackingFormat(ctx context.Context) error

	// ClearLocalTracking deletes local tracking and returns the removed path.
	ClearLocalTracking(ctx context.Context) (string, error)

	// ClearRemoteTracking deletes remote tracking and returns the removed path.
	ClearRemoteTracking(ctx context.Context) (string, error)
}

// Retriever submits and polls metadata retrieve jobs.
type Retriever interface {
	Retrieve(ctx context.Context, req *retrieve.Request) (*retrieve.Handle, error)
	PollStatus(ctx context.Context, h *retrieve.Handle, timeout time.Duration) (*retrieve.Result, error)
}

// Syncer orchestrates pull and tracking operations between a project and an org.
type Syncer struct {
	changes   ChangeProvider
	retriever Retriever
	logger    *zap.Logger
}

// New creates a new Syncer with the specified dependencies.
func New(changes ChangeProvider, retriever Retriever, logger *zap.Logger) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Syncer{
		changes:   changes,
		retriever: retriever,
		logger:    logger,
	}
}

// Pull brings remote changes into the project.
func (s *Syncer) Pull(ctx context.Context, req *PullRequest) (*PullResult, error) {
	return s.pull(ctx, req)
}

// ClearTracking deletes local and remote tracking state.
func (s *Syncer) ClearTracking(ctx context.Context, req *ClearTrackingRequest) (*ClearTrackingResult, error) {
	return s.clearTracking(ctx, req)
}
