package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/danieljhkim/sourcesync/internal/metadata"
	"github.com/danieljhkim/sourcesync/internal/report"
	"github.com/danieljhkim/sourcesync/internal/sync"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// defaultWaitMinutes is how long pull polls the retrieve job by default.
const defaultWaitMinutes = 33

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Pull remote changes into the project",
	Long: `Pull changes made in the target org into the local project.

Components deleted in the org are removed from the project first. Components
added or changed in the org are then retrieved and written to the package
directory they already live in, or to the default package directory.

If a component changed both locally and in the org, pull stops unless
--forceoverwrite is given, in which case the org version wins.

Exit codes:
  0   the retrieve succeeded, or there was nothing to retrieve
  1   the retrieve failed, was canceled or only partly succeeded, or another
      error occurred
  69  the retrieve was still running when --wait ran out

Examples:
  # Pull from the default org
  sourcesync pull

  # Pull from a specific org and overwrite local conflicts
  sourcesync pull --target-org dev@example.com --forceoverwrite

  # Give up waiting after 5 minutes
  sourcesync pull --wait 5`,
	Args: cobra.NoArgs,
	RunE: runPull,
}

var (
	pullForceOverwrite bool
	pullWait           int
	pullAPIVersion     string
)

func init() {
	pullCmd.Flags().BoolVarP(&pullForceOverwrite, "forceoverwrite", "f", false, "Ignore conflicts and overwrite local changes")
	pullCmd.Flags().IntVarP(&pullWait, "wait", "w", defaultWaitMinutes, "Minutes to wait for the retrieve to complete")
	pullCmd.Flags().StringVar(&pullAPIVersion, "api-version", "", "Override the API version used for the retrieve")
}

func runPull(cmd *cobra.Command, args []string) error {
	if pullWait < 0 {
		return fmt.Errorf("--wait must be 0 or greater, got %d", pullWait)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	syncer := newSyncer(ctx, env)

	progress := newPullProgress(cmd.ErrOrStderr(), jsonOutput)
	progress.status("Preparing to pull source")

	result, err := syncer.Pull(ctx, &sync.PullRequest{
		Org:            env.org,
		Project:        env.project,
		ForceOverwrite: pullForceOverwrite,
		Wait:           time.Duration(pullWait) * time.Minute,
		APIVersion:     pullAPIVersion,
		Listener:       progress,
	})
	progress.stop()
	if err != nil {
		var conflictErr *sync.ConflictError
		if errors.As(err, &conflictErr) {
			return reportConflicts(cmd.OutOrStdout(), conflictErr)
		}
		return err
	}

	formatter := report.NewPullFormatter(result.Retrieve, result.Deleted, report.Options{Verbose: verbose})
	code, ok := result.ExitCode()
	if !ok {
		code = 0
	}

	if jsonOutput {
		var warnings []string
		if r := formatter.Result(); r != nil && !formatter.Failed() {
			for _, m := range r.Messages {
				warnings = append(warnings, fmt.Sprintf("%s: %s", m.FileName, m.Problem))
			}
		}
		if err := outputJSON(cmd.OutOrStdout(), code, formatter.JSON(), warnings, formatter.ErrorText()); err != nil {
			return err
		}
		if code != 0 {
			return &ExitError{Code: code}
		}
		return nil
	}

	if err := formatter.Display(cmd.OutOrStdout()); err != nil {
		return &ExitError{Code: code, Err: err}
	}
	if code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

// conflictRow is the JSON shape of one conflicting component.
type conflictRow struct {
	State    string `json:"state"`
	FullName string `json:"fullName"`
	Type     string `json:"type"`
	FilePath string `json:"filePath"`
}

func reportConflicts(w io.Writer, conflictErr *sync.ConflictError) error {
	var rows []conflictRow
	for _, c := range conflictErr.Conflicts {
		paths := c.FilePaths
		if len(paths) == 0 {
			paths = []string{""}
		}
		for _, p := range paths {
			rows = append(rows, conflictRow{
				State:    "Conflict",
				FullName: c.Component.FullName,
				Type:     c.Component.Type,
				FilePath: p,
			})
		}
	}

	if jsonOutput {
		if err := outputJSON(w, 1, rows, nil, conflictErr.Error()); err != nil {
			return err
		}
		return &ExitError{Code: 1}
	}

	PrintSection(w, "Conflicts")
	items := make([]string, 0, len(rows))
	for _, r := range rows {
		items = append(items, fmt.Sprintf("%s:%s  %s", r.Type, r.FullName, r.FilePath))
	}
	PrintList(w, items)
	_, _ = fmt.Fprintln(w)
	PrintWarning(w, "Run pull with --forceoverwrite to replace local changes with the org version.")
	return &ExitError{Code: 1, Err: conflictErr}
}

// pullProgress reports pull phases on stderr.
type pullProgress struct {
	w     io.Writer
	quiet bool
	line  *statusLine
}

func newPullProgress(w io.Writer, quiet bool) *pullProgress {
	return &pullProgress{w: w, quiet: quiet, line: newStatusLine(w)}
}

func (p *pullProgress) status(msg string) {
	if !p.quiet {
		p.line.Update(msg)
	}
}

func (p *pullProgress) stop() {
	p.line.Stop()
}

func (p *pullProgress) RetrieveVersion(_ context.Context, info sync.VersionInfo) error {
	if p.quiet {
		return nil
	}
	p.line.Stop()
	PrintInfo(p.w, fmt.Sprintf("Pulling v%s metadata from %s using the v%s API", info.ManifestVersion, info.Username, info.APIVersion))
	return nil
}

func (p *pullProgress) BeforeRetrieve(_ context.Context, components []metadata.Component) error {
	p.status("Retrieving " + PrintCount(len(components), "component", "components"))
	return nil
}

func (p *pullProgress) AfterRetrieve(_ context.Context, files []metadata.FileResponse) error {
	p.stop()
	logger.Debug("retrieve returned files", zap.Int("files", len(files)))
	return nil
}
