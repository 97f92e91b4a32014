package tracking

import (
	"errors"
	"time"
)

// FormatVersion is the on-disk version of both tracking files.
const FormatVersion = 2

// ErrIncompatibleFormat is returned when a tracking file was written by an
// incompatible version.
var ErrIncompatibleFormat = errors.New("incompatible tracking file format")

// LocalState is the content of localSourceTracking.json.
type LocalState struct {
	Version int `json:"version"`

	// Files maps project-relative paths to their hash at the last sync.
	Files map[string]string `json:"files"`
}

// MemberState is the remote tracking entry for one component.
type MemberState struct {
	MemberType              string `json:"memberType"`
	MemberName              string `json:"memberName"`
	ServerRevisionCounter   int64  `json:"serverRevisionCounter"`
	LastRetrievedFromServer int64  `json:"lastRetrievedFromServer"`
	IsNameObsolete          bool   `json:"isNameObsolete"`
}

// Pending reports whether the org has a revision the project has not seen.
func (m MemberState) Pending() bool {
	return m.ServerRevisionCounter != m.LastRetrievedFromServer
}

// RemoteState is the content of maxRevision.json.
type RemoteState struct {
	Version                  int                    `json:"version"`
	ServerMaxRevisionCounter int64                  `json:"serverMaxRevisionCounter"`
	LastSync                 time.Time              `json:"lastSync,omitempty"`
	SourceMembers            map[string]MemberState `json:"sourceMembers"`
}

// NewLocalState creates an empty LocalState.
func NewLocalState() *LocalState {
	return &LocalState{
		Version: FormatVersion,
		Files:   make(map[string]string),
	}
}

// NewRemoteState creates an empty RemoteState.
func NewRemoteState() *RemoteState {
	return &RemoteState{
		Version:       FormatVersion,
		SourceMembers: make(map[string]MemberState),
	}
}
