package sync

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// clearTracking implements the tracking clear operation.
func (s *Syncer) clearTracking(ctx context.Context, req *ClearTrackingRequest) (*ClearTrackingResult, error) {
	if err := s.changes.ValidateTrackingFormat(ctx); err != nil {
		return nil, &IncompatibleStateError{Err: err}
	}

	if !req.NoPrompt {
		if req.Confirm == nil {
			return nil, fmt.Errorf("confirmation is required unless prompting is disabled")
		}
		ok, err := req.Confirm(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to confirm: %w", err)
		}
		if !ok {
			return &ClearTrackingResult{ClearedFiles: []string{}, Declined: true}, nil
		}
	}

	var local, remote string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		local, err = s.changes.ClearLocalTracking(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		remote, err = s.changes.ClearRemoteTracking(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to clear tracking: %w", err)
	}

	s.logger.Debug("cleared tracking", zap.String("local", local), zap.String("remote", remote))
	return &ClearTrackingResult{ClearedFiles: []string{local, remote}}, nil
}
