package metadata

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/danieljhkim/sourcesync/internal/fsops"
)

// Resolver maps project files under the package directories to components.
type Resolver struct {
	fs          fsops.FS
	registry    *Registry
	packageDirs []string
}

// NewResolver creates a resolver over the given package directories.
func NewResolver(fs fsops.FS, registry *Registry, packageDirs []string) *Resolver {
	return &Resolver{
		fs:          fs,
		registry:    registry,
		packageDirs: packageDirs,
	}
}

// Registry returns the type registry used by the resolver.
func (r *Resolver) Registry() *Registry {
	return r.registry
}

// Index walks every package directory and returns component key -> sorted file paths.
// Files that do not belong to a registered type are skipped.
func (r *Resolver) Index() (map[string][]string, error) {
	index := make(map[string][]string)
	for _, dir := range r.packageDirs {
		err := r.fs.Walk(dir, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return nil
			}
			rel := filepath.ToSlash(p)
			c, ok := r.registry.ComponentForPath(rel)
			if !ok {
				return nil
			}
			index[c.Key()] = append(index[c.Key()], rel)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to index package directory %s: %w", dir, err)
		}
	}
	for key := range index {
		sort.Strings(index[key])
	}
	return index, nil
}
