// Package report renders pull results for the console and for JSON output.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/danieljhkim/sourcesync/internal/metadata"
	"github.com/danieljhkim/sourcesync/internal/retrieve"
)

// Options controls how results are rendered.
type Options struct {
	// Verbose also lists files the retrieve left unchanged.
	Verbose bool
}

// PullResponse is the machine-readable pull result.
type PullResponse struct {
	PulledSource  []metadata.FileResponse `json:"pulledSource"`
	DeletedSource []metadata.FileResponse `json:"deletedSource"`
}

// RetrieveFailedError is returned by Display for failed or canceled retrieves.
type RetrieveFailedError struct {
	Status  retrieve.RequestStatus
	Message string
}

func (e *RetrieveFailedError) Error() string {
	return e.Message
}

var fileHeaders = []string{"STATE", "FULL NAME", "TYPE", "PROJECT PATH"}

// PullFormatter formats a retrieve result and the files deleted before it.
type PullFormatter struct {
	result  *retrieve.Result
	deleted []metadata.FileResponse
	opts    Options
}

// NewPullFormatter creates a formatter. result may be nil when nothing was
// retrieved. The raw payload of result is dropped.
func NewPullFormatter(result *retrieve.Result, deleted []metadata.FileResponse, opts Options) *PullFormatter {
	var stripped *retrieve.Result
	if result != nil {
		r := *result
		r.ZipFile = nil
		stripped = &r
	}
	return &PullFormatter{
		result:  stripped,
		deleted: deleted,
		opts:    opts,
	}
}

// Result returns the retrieve result without its payload.
func (f *PullFormatter) Result() *retrieve.Result {
	return f.result
}

// JSON returns the machine-readable response. Both lists are always non-nil.
func (f *PullFormatter) JSON() PullResponse {
	resp := PullResponse{
		PulledSource:  []metadata.FileResponse{},
		DeletedSource: []metadata.FileResponse{},
	}
	if f.result != nil {
		resp.PulledSource = append(resp.PulledSource, f.result.Files...)
	}
	resp.DeletedSource = append(resp.DeletedSource, f.deleted...)
	return resp
}

// Failed reports whether the retrieve ended in Failed or Canceled.
func (f *PullFormatter) Failed() bool {
	if f.result == nil {
		return false
	}
	return f.result.Status == retrieve.StatusFailed || f.result.Status == retrieve.StatusCanceled
}

// ErrorText returns the failure message for a failed retrieve, or "".
// An explicit error message from the org is used verbatim; otherwise the
// per-file messages are listed.
func (f *PullFormatter) ErrorText() string {
	if !f.Failed() {
		return ""
	}
	if f.result.ErrorMessage != "" {
		return f.result.ErrorMessage
	}

	messages := f.result.Messages
	if len(messages) == 0 {
		messages = []retrieve.Message{{}}
	}
	var b strings.Builder
	b.WriteString("Retrieve Failed due to: ")
	for _, m := range messages {
		fmt.Fprintf(&b, "\n%s: %s", orUnknown(m.FileName), orUnknown(m.Problem))
	}
	return b.String()
}

// Display writes the human-readable result to w. For failed retrieves it
// returns a *RetrieveFailedError carrying ErrorText.
func (f *PullFormatter) Display(w io.Writer) error {
	if f.Failed() {
		f.writeDeleted(w)
		return &RetrieveFailedError{Status: f.result.Status, Message: f.ErrorText()}
	}

	if f.result != nil && !f.result.Status.IsTerminal() {
		f.writeDeleted(w)
		_, _ = fmt.Fprintln(w)
		_, _ = infoColor.Fprintf(w, "Retrieve %s is still in progress (status: %s). Run pull again once it completes.\n",
			f.result.ID, f.result.Status)
		return nil
	}

	retrieved := f.retrievedRows()
	if len(retrieved) == 0 && len(f.deleted) == 0 {
		_, _ = fmt.Fprintln(w)
		_, _ = dimColor.Fprintln(w, "  No results found")
	}
	(&table{title: "Retrieved Source", headers: fileHeaders, rows: retrieved}).write(w)
	f.writeDeleted(w)

	if f.result != nil && len(f.result.Messages) > 0 {
		rows := make([][]string, 0, len(f.result.Messages))
		for _, m := range f.result.Messages {
			rows = append(rows, []string{m.FileName, m.Problem})
		}
		(&table{
			title:      "Retrieved Source Warnings",
			titleColor: warningColor,
			headers:    []string{"FILE NAME", "PROBLEM"},
			rows:       rows,
		}).write(w)
	}
	return nil
}

func (f *PullFormatter) retrievedRows() [][]string {
	if f.result == nil {
		return nil
	}
	var rows [][]string
	for _, r := range f.result.Files {
		if r.State == metadata.StatusUnchanged && !f.opts.Verbose {
			continue
		}
		rows = append(rows, fileRow(r))
	}
	return rows
}

func (f *PullFormatter) writeDeleted(w io.Writer) {
	rows := make([][]string, 0, len(f.deleted))
	for _, r := range f.deleted {
		rows = append(rows, fileRow(r))
	}
	(&table{title: "Deleted Source", headers: fileHeaders, rows: rows}).write(w)
}

func fileRow(r metadata.FileResponse) []string {
	return []string{string(r.State), r.FullName, r.Type, r.FilePath}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
