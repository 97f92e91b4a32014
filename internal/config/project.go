package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProjectFileName is the file that marks a project root.
const ProjectFileName = "sourcesync-project.yaml"

// ErrProjectNotFound is returned when no project file exists in cwd or any parent.
var ErrProjectNotFound = errors.New("not in a sourcesync project (no " + ProjectFileName + " found)")

// PackageDirectory is one source root of the project.
type PackageDirectory struct {
	Path    string `yaml:"path"`
	Default bool   `yaml:"default,omitempty"`
}

// Project is the parsed sourcesync-project.yaml plus its location.
type Project struct {
	// Root is the absolute path of the directory containing the project file
	Root string `yaml:"-"`

	PackageDirectories []PackageDirectory `yaml:"packageDirectories"`
	SourceAPIVersion   string             `yaml:"sourceApiVersion,omitempty"`
}

// DefaultPackage returns the package directory marked default, or the first one.
func (p *Project) DefaultPackage() PackageDirectory {
	for _, pkg := range p.PackageDirectories {
		if pkg.Default {
			return pkg
		}
	}
	return p.PackageDirectories[0]
}

// PackagePaths returns the project-relative paths of all package directories.
func (p *Project) PackagePaths() []string {
	paths := make([]string, 0, len(p.PackageDirectories))
	for _, pkg := range p.PackageDirectories {
		paths = append(paths, filepath.ToSlash(filepath.Clean(pkg.Path)))
	}
	return paths
}

// Validate checks the project definition for required fields.
func (p *Project) Validate() error {
	if len(p.PackageDirectories) == 0 {
		return fmt.Errorf("%s: at least one packageDirectories entry is required", ProjectFileName)
	}
	defaults := 0
	for _, pkg := range p.PackageDirectories {
		if pkg.Path == "" {
			return fmt.Errorf("%s: package directory path must not be empty", ProjectFileName)
		}
		if filepath.IsAbs(pkg.Path) {
			return fmt.Errorf("%s: package directory %q must be relative to the project root", ProjectFileName, pkg.Path)
		}
		if pkg.Default {
			defaults++
		}
	}
	if defaults > 1 {
		return fmt.Errorf("%s: only one package directory can be the default", ProjectFileName)
	}
	return nil
}

// DiscoverProject walks up from dir looking for the project file.
func DiscoverProject(dir string) (string, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	current := absPath
	for {
		if info, err := os.Stat(filepath.Join(current, ProjectFileName)); err == nil && info.Mode().IsRegular() {
			return current, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", ErrProjectNotFound
		}
		current = parent
	}
}

// LoadProject reads and validates the project file in root.
func LoadProject(root string) (*Project, error) {
	data, err := os.ReadFile(filepath.Join(root, ProjectFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to read project file: %w", err)
	}

	var project Project
	if err := yaml.Unmarshal(data, &project); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ProjectFileName, err)
	}
	if err := project.Validate(); err != nil {
		return nil, err
	}
	project.Root = root
	return &project, nil
}
