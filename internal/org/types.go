package org

import "github.com/danieljhkim/sourcesync/internal/metadata"

// SourceMember is one row of the org's change-tracking table.
type SourceMember struct {
	MemberType      string `json:"memberType"`
	MemberName      string `json:"memberName"`
	RevisionCounter int64  `json:"revisionCounter"`
	IsNameObsolete  bool   `json:"isNameObsolete"`
}

// Component returns the component the member describes.
func (m SourceMember) Component() metadata.Component {
	return metadata.Component{Type: m.MemberType, FullName: m.MemberName}
}

type sourceMembersResponse struct {
	Records []SourceMember `json:"records"`
}

// RetrievePackage is the unpackaged manifest sent with a retrieve request.
type RetrievePackage struct {
	Version string                  `json:"version,omitempty"`
	Types   []metadata.ManifestType `json:"types"`
}

// RetrieveRequest starts an asynchronous retrieve job.
type RetrieveRequest struct {
	APIVersion string          `json:"apiVersion"`
	Unpackaged RetrievePackage `json:"unpackaged"`
}

// RetrieveMessage is a per-file problem reported by the org.
type RetrieveMessage struct {
	FileName string `json:"fileName"`
	Problem  string `json:"problem"`
}

// RetrieveStatus is the org's view of a retrieve job.
type RetrieveStatus struct {
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	Done         bool              `json:"done"`
	Success      bool              `json:"success"`
	ErrorMessage string            `json:"errorMessage,omitempty"`
	Messages     []RetrieveMessage `json:"messages,omitempty"`

	// ZipFile is the base64-decoded payload (encoding/json decodes []byte from base64).
	ZipFile []byte `json:"zipFile,omitempty"`
}

type apiErrorBody struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
}
