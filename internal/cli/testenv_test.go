package cli

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	gosync "sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/danieljhkim/sourcesync/internal/config"
	"github.com/danieljhkim/sourcesync/internal/org"
)

const (
	testUsername = "dev@example.com"
	testOrgID    = "00D000000000001"
)

// fakeOrg serves the org endpoints used by pull.
type fakeOrg struct {
	*httptest.Server

	mu        gosync.Mutex
	members   []org.SourceMember
	status    org.RetrieveStatus
	retrieves []org.RetrieveRequest
}

func newFakeOrg(t *testing.T) *fakeOrg {
	t.Helper()
	f := &fakeOrg{}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /services/data/v60.0/tooling/sourcemembers", func(w http.ResponseWriter, r *http.Request) {
		from, _ := strconv.ParseInt(r.URL.Query().Get("fromRevision"), 10, 64)
		f.mu.Lock()
		defer f.mu.Unlock()
		records := []org.SourceMember{}
		for _, m := range f.members {
			if m.RevisionCounter > from {
				records = append(records, m)
			}
		}
		writeJSON(w, map[string]any{"records": records})
	})
	mux.HandleFunc("POST /services/data/v60.0/metadata/retrieve", func(w http.ResponseWriter, r *http.Request) {
		var req org.RetrieveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.retrieves = append(f.retrieves, req)
		f.mu.Unlock()
		writeJSON(w, org.RetrieveStatus{ID: "09S000000000001", Status: "Pending"})
	})
	mux.HandleFunc("GET /services/data/v60.0/metadata/retrieve/09S000000000001", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, f.status)
	})

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeOrg) setMembers(members ...org.SourceMember) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members = members
}

func (f *fakeOrg) setStatus(status org.RetrieveStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}

func (f *fakeOrg) retrieveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.retrieves)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func zipPayload(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// setupProject creates a project, a global config pointing at server and
// returns the project root.
func setupProject(t *testing.T, server *fakeOrg) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv(config.HomeEnvVar, home)
	paths := config.NewPaths(home)
	require.NoError(t, config.NewOrgStore(paths).Save(&config.OrgAuth{
		Username:    testUsername,
		OrgID:       testOrgID,
		InstanceURL: server.URL,
		AccessToken: "00Dtoken",
		APIVersion:  "60.0",
	}))
	require.NoError(t, os.WriteFile(paths.Config, []byte("target-org = \"dev\"\n\n[aliases]\ndev = \""+testUsername+"\"\n"), 0600))

	root := t.TempDir()
	project := "packageDirectories:\n  - path: force-app\n    default: true\nsourceApiVersion: \"60.0\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, config.ProjectFileName), []byte(project), 0644))

	prev := pollInterval
	pollInterval = 0
	t.Cleanup(func() { pollInterval = prev })

	return root
}

func writeProjectFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
}

func projectFileExists(t *testing.T, root, rel string) bool {
	t.Helper()
	_, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
	if os.IsNotExist(err) {
		return false
	}
	require.NoError(t, err)
	return true
}

func trackingFile(root, name string) string {
	return filepath.Join(root, filepath.FromSlash(config.TrackingDir(testOrgID)), name)
}
