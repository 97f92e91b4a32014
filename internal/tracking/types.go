package tracking

import "github.com/danieljhkim/sourcesync/internal/metadata"

// Origin says which side of the sync a change was observed on.
type Origin string

const (
	OriginLocal  Origin = "local"
	OriginRemote Origin = "remote"
)

// State is the kind of change.
type State string

const (
	StateAdd    State = "add"
	StateDelete State = "delete"
	StateModify State = "modify"
)

// Change is a tracked difference for one component.
type Change struct {
	Origin    Origin             `json:"origin"`
	State     State              `json:"state"`
	Component metadata.Component `json:"component"`

	// FilePaths are the project files currently backing the component.
	FilePaths []string `json:"filePaths,omitempty"`
}

// Filter selects changes. Zero fields match everything.
type Filter struct {
	Origin Origin
	State  State
}

// Matches reports whether c passes the filter.
func (f Filter) Matches(c Change) bool {
	if f.Origin != "" && f.Origin != c.Origin {
		return false
	}
	if f.State != "" && f.State != c.State {
		return false
	}
	return true
}

// Conflict is a component changed both locally and in the org.
type Conflict struct {
	Component metadata.Component `json:"component"`
	Local     State              `json:"localState"`
	Remote    State              `json:"remoteState"`
	FilePaths []string           `json:"filePaths,omitempty"`
}
