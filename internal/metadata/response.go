package metadata

// ComponentStatus is the per-file outcome reported for a retrieve or delete.
type ComponentStatus string

const (
	StatusCreated   ComponentStatus = "Created"
	StatusChanged   ComponentStatus = "Changed"
	StatusUnchanged ComponentStatus = "Unchanged"
	StatusDeleted   ComponentStatus = "Deleted"
	StatusFailed    ComponentStatus = "Failed"
)

// FileResponse describes what happened to one project file.
// Locally applied remote deletions are reported as FileResponses with
// State == StatusDeleted.
type FileResponse struct {
	FullName string          `json:"fullName"`
	Type     string          `json:"type"`
	State    ComponentStatus `json:"state"`
	FilePath string          `json:"filePath,omitempty"`
	Problem  string          `json:"problem,omitempty"`
}

// Component returns the component the file belongs to.
func (r FileResponse) Component() Component {
	return Component{Type: r.Type, FullName: r.FullName}
}

// Succeeded reports whether the file was written or deleted without error.
func (r FileResponse) Succeeded() bool {
	return r.State != StatusFailed
}
