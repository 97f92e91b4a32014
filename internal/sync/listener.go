package sync

import (
	"context"

	"github.com/danieljhkim/sourcesync/internal/metadata"
)

// VersionInfo describes the versions a retrieve runs with.
type VersionInfo struct {
	Username        string
	APIVersion      string
	ManifestVersion string
}

// PullListener observes the retrieve phase of a pull.
// Errors returned by a listener are logged and do not fail the pull.
type PullListener interface {
	RetrieveVersion(ctx context.Context, info VersionInfo) error
	BeforeRetrieve(ctx context.Context, components []metadata.Component) error
	AfterRetrieve(ctx context.Context, files []metadata.FileResponse) error
}

// NopListener ignores every event.
type NopListener struct{}

func (NopListener) RetrieveVersion(context.Context, VersionInfo) error { return nil }
func (NopListener) BeforeRetrieve(context.Context, []metadata.Component) error { return nil }
func (NopListener) AfterRetrieve(context.Context, []metadata.FileResponse) error { return nil }
