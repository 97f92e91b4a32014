package sync

import (
	"context"
	"fmt"
	"path"

	"go.uber.org/zap"

	"github.com/danieljhkim/sourcesync/internal/config"
	"github.com/danieljhkim/sourcesync/internal/retrieve"
	"github.com/danieljhkim/sourcesync/internal/tracking"
)

// pull implements the pull operation.
func (s *Syncer) pull(ctx context.Context, req *PullRequest) (*PullResult, error) {
	if req.Org == nil || req.Project == nil {
		return nil, fmt.Errorf("org and project are required")
	}
	listener := req.Listener
	if listener == nil {
		listener = NopListener{}
	}

	conflicts, err := s.changes.Conflicts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check conflicts: %w", err)
	}
	if len(conflicts) > 0 && !req.ForceOverwrite {
		return nil, &ConflictError{Conflicts: conflicts}
	}
	if len(conflicts) > 0 {
		s.logger.Info("overwriting local changes", zap.Int("conflicts", len(conflicts)))
	}

	// Remote deletes are applied before anything is retrieved.
	remoteDeletes, err := s.changes.GetChanges(ctx, tracking.Filter{
		Origin: tracking.OriginRemote,
		State:  tracking.StateDelete,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get remote deletes: %w", err)
	}
	deleted, err := s.changes.DeleteFilesAndUpdateTracking(ctx, remoteDeletes)
	if err != nil {
		return nil, fmt.Errorf("failed to apply remote deletes: %w", err)
	}
	s.logger.Debug("applied remote deletes",
		zap.Int("components", len(remoteDeletes)),
		zap.Int("files", len(deleted)))

	result, err := s.retrieveRemoteChanges(ctx, req, listener)
	if err != nil {
		// The deleted files are already gone, so their tracking is kept.
		if flushErr := s.changes.UpdateTrackingFromRetrieve(ctx, nil); flushErr != nil {
			s.logger.Warn("failed to persist tracking after retrieve error", zap.Error(flushErr))
		}
		return nil, err
	}

	if err := s.changes.UpdateTrackingFromRetrieve(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to update tracking: %w", err)
	}

	return &PullResult{
		Retrieve: result,
		Deleted:  deleted,
	}, nil
}

// retrieveRemoteChanges retrieves remote adds and modifies. It returns a nil
// result when there is nothing to retrieve.
func (s *Syncer) retrieveRemoteChanges(ctx context.Context, req *PullRequest, listener PullListener) (*retrieve.Result, error) {
	components, err := s.changes.RemoteNonDeletesAsComponentSet(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get remote changes: %w", err)
	}
	if components.Size() == 0 {
		s.logger.Debug("no remote changes to retrieve")
		return nil, nil
	}

	components.SourceAPIVersion = req.Project.SourceAPIVersion
	components.APIVersion = resolveAPIVersion(req)

	handle, err := s.retriever.Retrieve(ctx, &retrieve.Request{
		Components: components,
		OutputDir:  path.Join(req.Project.DefaultPackage().Path, "main", "default"),
	})
	if err != nil {
		return nil, &RemoteRetrieveError{Err: err}
	}

	s.notify("RetrieveVersion", listener.RetrieveVersion(ctx, VersionInfo{
		Username:        req.Org.Username,
		APIVersion:      handle.APIVersion,
		ManifestVersion: handle.ManifestVersion,
	}))
	s.notify("BeforeRetrieve", listener.BeforeRetrieve(ctx, components.ToSlice()))

	result, err := s.retriever.PollStatus(ctx, handle, req.Wait)
	if err != nil {
		return nil, &RemoteRetrieveError{Err: err}
	}

	s.notify("AfterRetrieve", listener.AfterRetrieve(ctx, result.FileResponses()))
	s.logger.Debug("retrieve finished",
		zap.String("id", result.ID),
		zap.String("status", string(result.Status)),
		zap.Int("files", len(result.Files)))
	return result, nil
}

func (s *Syncer) notify(event string, err error) {
	if err != nil {
		s.logger.Warn("pull listener failed", zap.String("event", event), zap.Error(err))
	}
}

func resolveAPIVersion(req *PullRequest) string {
	switch {
	case req.APIVersion != "":
		return req.APIVersion
	case req.Org.APIVersion != "":
		return req.Org.APIVersion
	default:
		return config.DefaultAPIVersion
	}
}
