// Package config manages sourcesync configuration and filesystem paths.
//
// Global state lives under ~/.sourcesync (override with SOURCESYNC_HOME):
// org auth files in orgs/ and CLI settings in config.toml. Per-project
// settings live in sourcesync-project.yaml at the project root, and source
// tracking files are kept under <project>/.sourcesync/orgs/<orgId>/.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeEnvVar overrides the global sourcesync directory.
const HomeEnvVar = "SOURCESYNC_HOME"

// Paths contains the global filesystem paths used by sourcesync.
type Paths struct {
	// Root is the base directory for global data (default: ~/.sourcesync)
	Root string

	// Orgs is the directory containing one auth file per org username
	Orgs string

	// Config is the path to the global CLI config file
	Config string
}

// DefaultPaths returns the default paths for sourcesync.
// The root can be overridden with the SOURCESYNC_HOME environment variable.
func DefaultPaths() (*Paths, error) {
	root := os.Getenv(HomeEnvVar)
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		root = filepath.Join(home, ".sourcesync")
	}
	return NewPaths(root), nil
}

// NewPaths builds Paths under the given root.
func NewPaths(root string) *Paths {
	return &Paths{
		Root:   root,
		Orgs:   filepath.Join(root, "orgs"),
		Config: filepath.Join(root, "config.toml"),
	}
}

// EnsureDirectories creates all necessary directories if they don't exist.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.Root, p.Orgs} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// TrackingDir returns the project-relative directory holding tracking files for an org.
func TrackingDir(orgID string) string {
	return filepath.ToSlash(filepath.Join(".sourcesync", "orgs", orgID))
}
