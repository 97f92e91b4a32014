// Package hash provides content hashing for local source tracking.
//
// The local tracking store records a SHA-256 digest per project file at the
// last sync. Comparing the current digest against the recorded one is how
// local modifications are detected.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/danieljhkim/sourcesync/internal/fsops"
)

// Hasher provides an abstraction for file hashing operations.
type Hasher interface {
	// HashFile computes the hash of the project file at the given path.
	HashFile(name string) (string, error)

	// HashBytes computes the hash of in-memory content.
	HashBytes(data []byte) string
}

// SHA256Hasher implements Hasher using SHA-256.
type SHA256Hasher struct {
	fs fsops.FS
}

// NewSHA256Hasher creates a new SHA256Hasher reading through fs.
func NewSHA256Hasher(fs fsops.FS) *SHA256Hasher {
	return &SHA256Hasher{fs: fs}
}

// HashFile computes the SHA-256 hash of the file at the given path.
func (h *SHA256Hasher) HashFile(name string) (string, error) {
	file, err := h.fs.Open(name)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// HashBytes computes the SHA-256 hash of data.
func (h *SHA256Hasher) HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
