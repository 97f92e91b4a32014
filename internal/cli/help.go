package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	groupTitleColor   = color.New(color.FgCyan, color.Bold)
	sectionTitleColor = color.New(color.FgBlue, color.Bold)
)

// renderHelp prints command help with colored section titles. Grouped
// commands are listed under their group, the rest under a plain section.
func renderHelp(cmd *cobra.Command, _ []string) {
	var b strings.Builder

	if desc := strings.TrimSpace(cmd.Long); desc != "" {
		b.WriteString(desc)
		b.WriteString("\n\n")
	} else if cmd.Short != "" {
		b.WriteString(cmd.Short)
		b.WriteString("\n\n")
	}

	writeSection(&b, "Usage:", "  "+cmd.UseLine()+"\n")
	if len(cmd.Aliases) > 0 {
		writeSection(&b, "Aliases:", "  "+strings.Join(cmd.Aliases, ", ")+"\n")
	}

	listed := make(map[string]bool)
	for _, group := range cmd.Groups() {
		rows := commandRows(cmd, func(c *cobra.Command) bool { return c.GroupID == group.ID })
		if rows == "" {
			continue
		}
		b.WriteString(groupTitleColor.Sprint(group.Title))
		b.WriteString("\n")
		b.WriteString(rows)
		b.WriteString("\n")
		listed[group.ID] = true
	}

	title := "Commands:"
	if len(listed) > 0 {
		title = "Additional Commands:"
	}
	if rows := commandRows(cmd, func(c *cobra.Command) bool { return !listed[c.GroupID] }); rows != "" {
		writeSection(&b, title, rows)
	}

	if flags := cmd.LocalFlags().FlagUsages() + cmd.InheritedFlags().FlagUsages(); flags != "" {
		writeSection(&b, "Flags:", flags)
	}

	if cmd.HasAvailableSubCommands() {
		fmt.Fprintf(&b, "Use \"%s [command] --help\" for more information about a command.\n", cmd.CommandPath())
	}

	_, _ = io.WriteString(cmd.OutOrStdout(), b.String())
}

func writeSection(b *strings.Builder, title, body string) {
	b.WriteString(sectionTitleColor.Sprint(title))
	b.WriteString("\n")
	b.WriteString(body)
	b.WriteString("\n")
}

// commandRows lists the visible subcommands of cmd accepted by keep.
func commandRows(cmd *cobra.Command, keep func(*cobra.Command) bool) string {
	var b strings.Builder
	for _, c := range cmd.Commands() {
		if !c.IsAvailableCommand() && c.Name() != "help" {
			continue
		}
		if keep(c) {
			fmt.Fprintf(&b, "  %-11s %s\n", c.Name(), c.Short)
		}
	}
	return b.String()
}
