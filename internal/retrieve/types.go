// Package retrieve runs metadata retrieve jobs against an org and merges the
// returned source into the project.
package retrieve

import (
	"slices"

	"github.com/danieljhkim/sourcesync/internal/metadata"
)

// RequestStatus is the lifecycle state of a retrieve job.
type RequestStatus string

const (
	StatusPending          RequestStatus = "Pending"
	StatusInProgress       RequestStatus = "InProgress"
	StatusSucceeded        RequestStatus = "Succeeded"
	StatusSucceededPartial RequestStatus = "SucceededPartial"
	StatusFailed           RequestStatus = "Failed"
	StatusCanceling        RequestStatus = "Canceling"
	StatusCanceled         RequestStatus = "Canceled"
)

// AllStatuses lists every RequestStatus value.
var AllStatuses = []RequestStatus{
	StatusPending,
	StatusInProgress,
	StatusSucceeded,
	StatusSucceededPartial,
	StatusFailed,
	StatusCanceling,
	StatusCanceled,
}

// IsTerminal reports whether no further transition can happen.
func (s RequestStatus) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusSucceededPartial, StatusFailed, StatusCanceled:
		return true
	}
	return false
}

// Known reports whether s is one of AllStatuses.
func (s RequestStatus) Known() bool {
	return slices.Contains(AllStatuses, s)
}

// IsSuccess reports whether the job produced usable source.
func (s RequestStatus) IsSuccess() bool {
	return s == StatusSucceeded || s == StatusSucceededPartial
}

// Message is a per-file warning or error reported by the org.
type Message struct {
	FileName string `json:"fileName"`
	Problem  string `json:"problem"`
}

// Request describes what to retrieve and where new files go.
type Request struct {
	// Components is the set to retrieve; its APIVersion and SourceAPIVersion
	// select the transport and manifest versions.
	Components *metadata.ComponentSet

	// OutputDir is the project-relative package directory that receives
	// components that do not exist locally yet.
	OutputDir string
}

// Handle identifies a submitted retrieve job.
type Handle struct {
	ID              string
	Username        string
	APIVersion      string
	ManifestVersion string
	OutputDir       string
	Status          RequestStatus
	Components      []metadata.Component
}

// Result is the outcome of polling a retrieve job.
type Result struct {
	ID           string                  `json:"id"`
	Status       RequestStatus           `json:"status"`
	Success      bool                    `json:"success"`
	Files        []metadata.FileResponse `json:"files"`
	Messages     []Message               `json:"messages,omitempty"`
	ErrorMessage string                  `json:"errorMessage,omitempty"`

	// ZipFile is the raw payload returned by the org. It can be very large
	// and is never serialized.
	ZipFile []byte `json:"-"`
}

// FileResponses returns a copy of the per-file outcomes.
func (r *Result) FileResponses() []metadata.FileResponse {
	if r == nil {
		return nil
	}
	out := make([]metadata.FileResponse, len(r.Files))
	copy(out, r.Files)
	return out
}
