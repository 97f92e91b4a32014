package tracking

import (
	"encoding/json"
	"fmt"
	"os"
	"path"

	"github.com/danieljhkim/sourcesync/internal/fsops"
)

const (
	LocalFileName  = "localSourceTracking.json"
	RemoteFileName = "maxRevision.json"

	pendingSuffix = ".pending"
)

// Store reads and writes the tracking files of one org.
type Store struct {
	fs  fsops.FS
	dir string
}

// NewStore creates a Store rooted at dir, a project-relative directory.
func NewStore(fs fsops.FS, dir string) *Store {
	return &Store{
		fs:  fs,
		dir: dir,
	}
}

// LocalPath returns the project-relative path of the local tracking file.
func (s *Store) LocalPath() string {
	return path.Join(s.dir, LocalFileName)
}

// RemotePath returns the project-relative path of the remote tracking file.
func (s *Store) RemotePath() string {
	return path.Join(s.dir, RemoteFileName)
}

// LoadLocal loads the local tracking file.
// Returns os.ErrNotExist if it has not been written yet.
func (s *Store) LoadLocal() (*LocalState, error) {
	var st LocalState
	if err := s.load(s.LocalPath(), &st); err != nil {
		return nil, err
	}
	if st.Files == nil {
		st.Files = make(map[string]string)
	}
	return &st, nil
}

// LoadRemote loads the remote tracking file.
// Returns os.ErrNotExist if it has not been written yet.
func (s *Store) LoadRemote() (*RemoteState, error) {
	var st RemoteState
	if err := s.load(s.RemotePath(), &st); err != nil {
		return nil, err
	}
	if st.SourceMembers == nil {
		st.SourceMembers = make(map[string]MemberState)
	}
	return &st, nil
}

// Save writes both tracking files. Both are staged next to their targets
// first, so a failed write leaves the previous pair untouched. The local
// file is renamed into place before the remote one.
func (s *Store) Save(local *LocalState, remote *RemoteState) error {
	files := []struct {
		name string
		v    any
	}{
		{s.LocalPath(), local},
		{s.RemotePath(), remote},
	}

	var staged []string
	discard := func() {
		for _, name := range staged {
			_ = s.fs.Remove(name)
		}
	}
	for _, f := range files {
		data, err := json.MarshalIndent(f.v, "", "  ")
		if err != nil {
			discard()
			return fmt.Errorf("failed to marshal %s: %w", f.name, err)
		}
		tmp := f.name + pendingSuffix
		if err := s.fs.AtomicWrite(tmp, data, 0644); err != nil {
			discard()
			return fmt.Errorf("failed to write %s: %w", f.name, err)
		}
		staged = append(staged, tmp)
	}

	for i, f := range files {
		if err := s.fs.Rename(staged[i], f.name); err != nil {
			discard()
			return fmt.Errorf("failed to replace %s: %w", f.name, err)
		}
	}
	return nil
}

// Version reads only the version field of a tracking file.
// Returns os.ErrNotExist if the file is missing.
func (s *Store) Version(name string) (int, error) {
	var header struct {
		Version int `json:"version"`
	}
	if err := s.load(name, &header); err != nil {
		return 0, err
	}
	return header.Version, nil
}

// Remove deletes a tracking file. A missing file is not an error.
func (s *Store) Remove(name string) error {
	if err := s.fs.Remove(name); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	return nil
}

func (s *Store) load(name string, v any) error {
	data, err := s.fs.ReadFile(name)
	if err != nil {
		if os.IsNotExist(err) {
			return os.ErrNotExist
		}
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", name, err)
	}
	return nil
}
