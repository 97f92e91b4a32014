package cli

import (
	"context"

	"github.com/danieljhkim/sourcesync/internal/sync"
	"github.com/spf13/cobra"
)

var trackingNoPrompt bool

// trackingCmd groups commands that manage source tracking state.
var trackingCmd = &cobra.Command{
	Use:   "tracking",
	Short: "Manage source tracking state",
	Args:  cobra.NoArgs,
}

// trackingClearCmd deletes the local and remote tracking files of the target org.
var trackingClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear local and remote source tracking",
	Long: `Delete the source tracking files kept for the target org.

Both the local file hashes and the record of org revisions are removed, so
the next pull treats every component in the org as new. Project source files
are not touched.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		env, err := loadEnvironment()
		if err != nil {
			return err
		}
		syncer := newSyncer(ctx, env)

		result, err := syncer.ClearTracking(ctx, &sync.ClearTrackingRequest{
			Org:      env.org,
			Project:  env.project,
			NoPrompt: trackingNoPrompt,
			Confirm: func(ctx context.Context) (bool, error) {
				return confirm(ctx, cmd.InOrStdin(), cmd.ErrOrStderr(),
					"Clear all local and remote source tracking for "+env.org.Username+"?")
			},
		})
		if err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), 0, result, nil, "")
		}

		out := cmd.OutOrStdout()
		if result.Declined {
			PrintInfo(out, "Source tracking was not cleared.")
			return nil
		}
		PrintSuccess(out, "Cleared local tracking files.")
		PrintList(out, result.ClearedFiles)
		return nil
	},
}

func init() {
	trackingClearCmd.Flags().BoolVarP(&trackingNoPrompt, "no-prompt", "p", false, "Do not prompt for confirmation")
	trackingCmd.AddCommand(trackingClearCmd)
}
