package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	jsonOutput bool
	verbose    bool
	targetOrg  string
	projectDir string

	logger = zap.NewNop()
)

// rootCmd is the root command for sourcesync.
var rootCmd = &cobra.Command{
	Use:     "sourcesync",
	Version: "dev",
	Short:   "Keep local project source in sync with a remote org",
	Long: `sourcesync keeps the metadata source of a local project in sync with a remote org.

It tracks which components changed locally and in the org, pulls remote changes
into the project's package directories, and removes files whose components were
deleted remotely.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		l, err := config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func SetVersion(v string) {
	if v == "" {
		return
	}
	rootCmd.Version = v
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func init() {
	rootCmd.SetHelpFunc(renderHelp)

	// Global flags
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging and list unchanged files")
	rootCmd.PersistentFlags().StringVarP(&targetOrg, "target-org", "o", "", "Username or alias of the target org (defaults to target-org in config.toml)")
	rootCmd.PersistentFlags().StringVar(&projectDir, "project-dir", "", "Project directory (defaults to the nearest directory containing sourcesync-project.yaml)")

	rootCmd.AddGroup(&cobra.Group{
		ID:    "source-tracking",
		Title: "Source Tracking:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "cli-tooling",
		Title: "CLI & Tooling:",
	})

	// CLI & Tooling commands
	versionCmd := &cobra.Command{
		Use:     "version",
		Short:   "Print the sourcesync CLI version",
		Args:    cobra.NoArgs,
		GroupID: "cli-tooling",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), rootCmd.Version)
		},
	}
	rootCmd.AddCommand(versionCmd)

	helpCmd := &cobra.Command{
		Use:     "help [command]",
		Short:   "Help about any command",
		GroupID: "cli-tooling",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Root().Help()
		},
	}
	rootCmd.SetHelpCommand(helpCmd)

	rootCmd.AddCommand(newCompletionCmd())

	// Source Tracking commands
	pullCmd.GroupID = "source-tracking"
	trackingCmd.GroupID = "source-tracking"
	rootCmd.AddCommand(pullCmd)
	rootCmd.AddCommand(trackingCmd)
}

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}
