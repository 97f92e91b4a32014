package cli

import (
	"io"

	"github.com/spf13/cobra"
)

// completionShells maps each supported shell to its script generator.
var completionShells = []struct {
	name string
	gen  func(root *cobra.Command, w io.Writer) error
}{
	{"bash", func(root *cobra.Command, w io.Writer) error { return root.GenBashCompletionV2(w, true) }},
	{"zsh", func(root *cobra.Command, w io.Writer) error { return root.GenZshCompletion(w) }},
	{"fish", func(root *cobra.Command, w io.Writer) error { return root.GenFishCompletion(w, true) }},
	{"powershell", func(root *cobra.Command, w io.Writer) error { return root.GenPowerShellCompletionWithDesc(w) }},
}

func newCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "completion",
		Short:   "Generate the autocompletion script for the specified shell",
		GroupID: "cli-tooling",
		Long: `Generate a shell completion script for sourcesync.

Load it in the current session, for example with bash:

  source <(sourcesync completion bash)`,
	}

	for _, shell := range completionShells {
		gen := shell.gen
		cmd.AddCommand(&cobra.Command{
			Use:                   shell.name,
			Short:                 "Generate the autocompletion script for " + shell.name,
			Args:                  cobra.NoArgs,
			DisableFlagsInUseLine: true,
			RunE: func(c *cobra.Command, _ []string) error {
				return gen(c.Root(), c.OutOrStdout())
			},
		})
	}
	return cmd
}
