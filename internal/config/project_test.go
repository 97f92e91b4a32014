package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProject(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectFileName), []byte(content), 0644))
}

func TestLoadProject(t *testing.T) {
	t.Run("parses package directories", func(t *testing.T) {
		dir := t.TempDir()
		writeProject(t, dir, `
packageDirectories:
  - path: force-app
    default: true
  - path: other/
sourceApiVersion: "59.0"
`)
		project, err := LoadProject(dir)
		require.NoError(t, err)

		assert.Equal(t, dir, project.Root)
		assert.Equal(t, "59.0", project.SourceAPIVersion)
		assert.Equal(t, "force-app", project.DefaultPackage().Path)
		assert.Equal(t, []string{"force-app", "other"}, project.PackagePaths())
	})

	t.Run("first package is default when none marked", func(t *testing.T) {
		dir := t.TempDir()
		writeProject(t, dir, "packageDirectories:\n  - path: a\n  - path: b\n")
		project, err := LoadProject(dir)
		require.NoError(t, err)
		assert.Equal(t, "a", project.DefaultPackage().Path)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadProject(t.TempDir())
		assert.True(t, errors.Is(err, ErrProjectNotFound))
	})

	t.Run("invalid definitions", func(t *testing.T) {
		cases := map[string]string{
			"no packages":    "sourceApiVersion: \"60.0\"\n",
			"empty path":     "packageDirectories:\n  - path: \"\"\n",
			"absolute path":  "packageDirectories:\n  - path: /abs\n",
			"two defaults":   "packageDirectories:\n  - path: a\n    default: true\n  - path: b\n    default: true\n",
			"malformed yaml": "packageDirectories: [\n",
		}
		for name, content := range cases {
			t.Run(name, func(t *testing.T) {
				dir := t.TempDir()
				writeProject(t, dir, content)
				_, err := LoadProject(dir)
				assert.Error(t, err)
			})
		}
	})
}

func TestDiscoverProject(t *testing.T) {
	root := t.TempDir()
	writeProject(t, root, "packageDirectories:\n  - path: force-app\n")
	nested := filepath.Join(root, "force-app", "main", "default")
	require.NoError(t, os.MkdirAll(nested, 0755))

	found, err := DiscoverProject(nested)
	require.NoError(t, err)
	assert.Equal(t, root, found)

	_, err = DiscoverProject(t.TempDir())
	assert.ErrorIs(t, err, ErrProjectNotFound)
}
