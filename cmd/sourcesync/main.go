package main

import (
	"fmt"
	"os"

	"github.com/danieljhkim/sourcesync/internal/cli"
)

var version = "dev"

func main() {
	cli.SetVersion(version)

	if err := cli.Execute(); err != nil {
		if !cli.Silent(err) {
			fmt.Fprintln(os.Stderr, cli.FormatError(err))
		}
		os.Exit(cli.ExitCode(err))
	}
}
