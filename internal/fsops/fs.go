// Package fsops provides the filesystem operations used against a project tree.
//
// All reads and writes of project source and tracking files go through the FS
// interface. The production implementation is rooted at the project directory
// on top of go-billy's osfs; tests use an in-memory filesystem instead.
//
// Key features:
//   - Project-relative, slash-separated paths
//   - Atomic writes using temp file + rename
//   - Path validation that rejects absolute paths and traversal
package fsops

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// FS provides an abstraction for filesystem operations relative to a root.
type FS interface {
	// ReadFile reads the entire contents of a file.
	ReadFile(name string) ([]byte, error)

	// Open opens a file for streaming reads.
	Open(name string) (io.ReadCloser, error)

	// WriteFile writes data to name, creating parent directories as needed.
	WriteFile(name string, data []byte, perm os.FileMode) error

	// AtomicWrite writes data to name atomically using temp file + rename.
	AtomicWrite(name string, data []byte, perm os.FileMode) error

	// Rename moves oldName to newName, replacing newName if it exists.
	Rename(oldName, newName string) error

	// Remove removes a file or empty directory.
	Remove(name string) error

	// RemoveAll removes a path and all its contents.
	RemoveAll(name string) error

	// MkdirAll creates a directory and all parent directories.
	MkdirAll(name string, perm os.FileMode) error

	// Exists checks if a path exists.
	Exists(name string) (bool, error)

	// Walk walks the file tree rooted at root.
	Walk(root string, fn filepath.WalkFunc) error

	// Root returns the directory this filesystem is rooted at.
	Root() string
}

// BillyFS implements FS on top of a go-billy filesystem.
// It is safe for concurrent use; memfs itself is not.
type BillyFS struct {
	mu sync.RWMutex
	fs billy.Filesystem
}

// NewOSFS creates an FS rooted at dir on the real filesystem.
func NewOSFS(dir string) *BillyFS {
	return &BillyFS{fs: osfs.New(dir)}
}

// NewMemFS creates an in-memory FS.
func NewMemFS() *BillyFS {
	return &BillyFS{fs: memfs.New()}
}

// Root returns the root of the underlying filesystem.
func (b *BillyFS) Root() string {
	return b.fs.Root()
}

// ReadFile reads the entire contents of a file.
func (b *BillyFS) ReadFile(name string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return util.ReadFile(b.fs, name)
}

// WriteFile writes data to name, creating parent directories as needed.
func (b *BillyFS) WriteFile(name string, data []byte, perm os.FileMode) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fs.MkdirAll(path.Dir(name), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}
	if err := util.WriteFile(b.fs, name, data, perm); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// AtomicWrite writes data to name atomically using temp file + rename.
func (b *BillyFS) AtomicWrite(name string, data []byte, perm os.FileMode) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	dir := path.Dir(name)
	if err := b.fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	tmp, err := b.fs.TempFile(dir, ".sourcesync-tmp-")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up temp file on error
	defer func() {
		if tmp != nil {
			_ = tmp.Close()
			_ = b.fs.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if ch, ok := b.fs.(billy.Change); ok {
		// memfs does not implement Chmod for every file, ignore that case
		_ = ch.Chmod(tmpName, perm)
	}
	if err := b.fs.Rename(tmpName, name); err != nil {
		_ = b.fs.Remove(tmpName)
		tmp = nil
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	tmp = nil
	return nil
}

// Rename moves oldName to newName, replacing newName if it exists.
func (b *BillyFS) Rename(oldName, newName string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fs.Rename(oldName, newName)
}

// Remove removes a file or empty directory.
func (b *BillyFS) Remove(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fs.Remove(name)
}

// RemoveAll removes a path and all its contents.
func (b *BillyFS) RemoveAll(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return util.RemoveAll(b.fs, name)
}

// MkdirAll creates a directory and all parent directories.
func (b *BillyFS) MkdirAll(name string, perm os.FileMode) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fs.MkdirAll(name, perm)
}

// Exists checks if a path exists.
func (b *BillyFS) Exists(name string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.exists(name)
}

func (b *BillyFS) exists(name string) (bool, error) {
	_, err := b.fs.Stat(name)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

type walkEntry struct {
	path string
	info os.FileInfo
	err  error
}

// Walk walks the file tree rooted at root. A missing root is not an error.
// The tree is listed under the read lock and fn runs after it is released,
// so fn may use the filesystem.
func (b *BillyFS) Walk(root string, fn filepath.WalkFunc) error {
	entries, err := b.list(root)
	if err != nil {
		return err
	}

	var skip string
	for _, e := range entries {
		if skip != "" && strings.HasPrefix(e.path, skip) {
			continue
		}
		skip = ""
		if err := fn(e.path, e.info, e.err); err != nil {
			if err != filepath.SkipDir {
				return err
			}
			if e.info != nil && e.info.IsDir() {
				skip = e.path + "/"
			} else {
				skip = path.Dir(e.path) + "/"
			}
		}
	}
	return nil
}

func (b *BillyFS) list(root string) ([]walkEntry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	exists, err := b.exists(root)
	if err != nil || !exists {
		return nil, err
	}
	var entries []walkEntry
	err = util.Walk(b.fs, root, func(p string, info os.FileInfo, err error) error {
		entries = append(entries, walkEntry{path: filepath.ToSlash(p), info: info, err: err})
		return nil
	})
	return entries, err
}

// Open opens a file for streaming reads.
func (b *BillyFS) Open(name string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.fs.Open(name)
}

// ValidateRelPath validates a project-relative path for safety.
// Returns an error if the path is invalid or unsafe.
func ValidateRelPath(relPath string) error {
	cleaned := path.Clean(filepath.ToSlash(relPath))

	if cleaned == "" || cleaned == "." {
		return fmt.Errorf("invalid path: empty or current directory")
	}
	if path.IsAbs(cleaned) || filepath.IsAbs(relPath) {
		return fmt.Errorf("invalid path: must be relative, got absolute path %q", relPath)
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return fmt.Errorf("invalid path: path traversal not allowed in %q", relPath)
	}

	return nil
}
