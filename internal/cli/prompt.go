package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// errNotInteractive is returned when a confirmation is needed but stdin is
// not a terminal.
var errNotInteractive = errors.New("cannot prompt for confirmation: stdin is not a terminal (use --no-prompt)")

// stdinIsTerminal reports whether stdin is attached to a terminal.
var stdinIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// confirm asks a yes/no question on out and reads the answer from in.
// Anything other than y or yes is a no.
func confirm(ctx context.Context, in io.Reader, out io.Writer, question string) (bool, error) {
	if !stdinIsTerminal() {
		return false, errNotInteractive
	}

	_, _ = warningColor.Fprintf(out, "%s (y/n) ", question)
	if err := ctx.Err(); err != nil {
		return false, err
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
