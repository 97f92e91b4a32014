package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/danieljhkim/sourcesync/internal/clock"
	"github.com/danieljhkim/sourcesync/internal/config"
	"github.com/danieljhkim/sourcesync/internal/fsops"
	"github.com/danieljhkim/sourcesync/internal/hash"
	"github.com/danieljhkim/sourcesync/internal/metadata"
	"github.com/danieljhkim/sourcesync/internal/org"
	"github.com/danieljhkim/sourcesync/internal/retrieve"
	"github.com/danieljhkim/sourcesync/internal/sync"
	"github.com/danieljhkim/sourcesync/internal/tracking"
)

// environment is the project and org a command runs against.
type environment struct {
	project *config.Project
	org     *config.OrgAuth
}

// loadEnvironment resolves the project from --project-dir or the working
// directory, and the org from --target-org or the configured default.
func loadEnvironment() (*environment, error) {
	dir := projectDir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		dir = cwd
	}

	root, err := config.DiscoverProject(dir)
	if err != nil {
		return nil, err
	}
	project, err := config.LoadProject(root)
	if err != nil {
		return nil, err
	}

	paths, err := config.DefaultPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get config paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	auth, err := config.NewOrgStore(paths).Resolve(targetOrg)
	if err != nil {
		return nil, err
	}

	logger.Debug("environment resolved",
		zap.String("project", project.Root),
		zap.String("org", auth.Username))
	return &environment{project: project, org: auth}, nil
}

// newSyncer creates a syncer with real implementations of all dependencies.
func newSyncer(ctx context.Context, env *environment) *sync.Syncer {
	fs := fsops.NewOSFS(env.project.Root)
	hasher := hash.NewSHA256Hasher(fs)
	clk := &clock.RealClock{}
	resolver := metadata.NewResolver(fs, metadata.DefaultRegistry(), env.project.PackagePaths())

	client := org.New(ctx, env.org, org.WithLogger(logger))
	store := tracking.NewStore(fs, config.TrackingDir(env.org.OrgID))
	tracker := tracking.NewTracker(fs, store, resolver, hasher, client, clk, logger)
	retriever := retrieve.NewMetadataRetriever(client, env.org.Username, fs, resolver, hasher,
		retrieve.WithClock(clk),
		retrieve.WithPollInterval(pollInterval),
		retrieve.WithLogger(logger))

	return sync.New(tracker, retriever, logger)
}

// pollInterval paces retrieve status checks.
var pollInterval = retrieve.DefaultPollInterval

// jsonEnvelope is the shape of every --json response.
type jsonEnvelope struct {
	Status   int      `json:"status"`
	Result   any      `json:"result"`
	Warnings []string `json:"warnings"`
	Message  string   `json:"message,omitempty"`
}

// outputJSON writes a JSON envelope to w.
func outputJSON(w io.Writer, status int, result any, warnings []string, message string) error {
	if warnings == nil {
		warnings = []string{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonEnvelope{
		Status:   status,
		Result:   result,
		Warnings: warnings,
		Message:  message,
	})
}
