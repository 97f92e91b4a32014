package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

var (
	headerColor  = color.New(color.FgBlue, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan)
	dimColor     = color.New(color.FgHiBlack)
)

// table is a titled, column-aligned block of rows.
type table struct {
	title      string
	titleColor *color.Color
	headers    []string
	rows       [][]string
}

// write renders the table. Tables without rows are skipped.
func (t *table) write(w io.Writer) {
	if len(t.headers) == 0 || len(t.rows) == 0 {
		return
	}

	titleColor := t.titleColor
	if titleColor == nil {
		titleColor = headerColor
	}
	_, _ = fmt.Fprintln(w)
	_, _ = titleColor.Fprintf(w, "▸ %s\n", t.title)
	_, _ = fmt.Fprintln(w)

	widths := make([]int, len(t.headers))
	for i, header := range t.headers {
		widths[i] = len(header)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	_, _ = fmt.Fprint(w, "  ")
	for i, header := range t.headers {
		if i > 0 {
			_, _ = fmt.Fprint(w, "  ")
		}
		_, _ = headerColor.Fprint(w, pad(header, widths[i], i == len(t.headers)-1))
	}
	_, _ = fmt.Fprintln(w)

	_, _ = fmt.Fprint(w, "  ")
	for i, width := range widths {
		if i > 0 {
			_, _ = fmt.Fprint(w, "  ")
		}
		_, _ = fmt.Fprint(w, strings.Repeat("─", width))
	}
	_, _ = fmt.Fprintln(w)

	for _, row := range t.rows {
		_, _ = fmt.Fprint(w, "  ")
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			if i > 0 {
				_, _ = fmt.Fprint(w, "  ")
			}
			_, _ = fmt.Fprint(w, pad(cell, widths[i], i == len(row)-1))
		}
		_, _ = fmt.Fprintln(w)
	}
}

// pad left-aligns s in width columns. The last column is not padded.
func pad(s string, width int, last bool) string {
	if last {
		return s
	}
	return fmt.Sprintf("%-*s", width, s)
}
