package integration

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"sort"
	gosync "sync"
	"testing"
	"time"

	"github.com/danieljhkim/sourcesync/internal/clock"
	"github.com/danieljhkim/sourcesync/internal/config"
	"github.com/danieljhkim/sourcesync/internal/fsops"
	"github.com/danieljhkim/sourcesync/internal/hash"
	"github.com/danieljhkim/sourcesync/internal/metadata"
	"github.com/danieljhkim/sourcesync/internal/org"
	"github.com/danieljhkim/sourcesync/internal/retrieve"
	"github.com/danieljhkim/sourcesync/internal/sync"
	"github.com/danieljhkim/sourcesync/internal/tracking"
)

const orgID = "00D000000000001"

// testOrg is an in-process org holding source members and their content.
type testOrg struct {
	mu       gosync.Mutex
	revision int64
	members  map[string]org.SourceMember
	files    map[string]map[string]string // component key -> zip path -> content
	status   string
	starts   int
}

func newTestOrg() *testOrg {
	return &testOrg{
		members: make(map[string]org.SourceMember),
		files:   make(map[string]map[string]string),
		status:  string(retrieve.StatusSucceeded),
	}
}

// put creates or updates a component in the org.
func (o *testOrg) put(c metadata.Component, files map[string]string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.revision++
	o.members[c.Key()] = org.SourceMember{MemberType: c.Type, MemberName: c.FullName, RevisionCounter: o.revision}
	o.files[c.Key()] = files
}

// remove deletes a component in the org.
func (o *testOrg) remove(c metadata.Component) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.revision++
	o.members[c.Key()] = org.SourceMember{MemberType: c.Type, MemberName: c.FullName, RevisionCounter: o.revision, IsNameObsolete: true}
	delete(o.files, c.Key())
}

func (o *testOrg) retrieveCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.starts
}

func (o *testOrg) SourceMembers(_ context.Context, fromRevision int64) ([]org.SourceMember, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []org.SourceMember
	for _, m := range o.members {
		if m.RevisionCounter > fromRevision {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RevisionCounter < out[j].RevisionCounter })
	return out, nil
}

func (o *testOrg) StartRetrieve(_ context.Context, req *org.RetrieveRequest) (*org.RetrieveStatus, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.starts++
	return &org.RetrieveStatus{ID: fmt.Sprintf("09S%012d", o.starts), Status: string(retrieve.StatusPending)}, nil
}

func (o *testOrg) CheckRetrieveStatus(_ context.Context, _, id string) (*org.RetrieveStatus, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	status := &org.RetrieveStatus{ID: id, Status: o.status}
	if !retrieve.RequestStatus(o.status).IsSuccess() {
		return status, nil
	}
	status.Done = true
	status.Success = true

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, files := range o.files {
		for name, content := range files {
			w, err := zw.Create("unpackaged/" + name)
			if err != nil {
				return nil, err
			}
			if _, err := w.Write([]byte(content)); err != nil {
				return nil, err
			}
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	status.ZipFile = buf.Bytes()
	return status, nil
}

// testEnv is a project on an in-memory filesystem connected to a testOrg.
type testEnv struct {
	fs      *fsops.BillyFS
	org     *testOrg
	project *config.Project
	auth    *config.OrgAuth
	clock   *clock.FakeClock
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return &testEnv{
		fs:  fsops.NewMemFS(),
		org: newTestOrg(),
		project: &config.Project{
			PackageDirectories: []config.PackageDirectory{{Path: "force-app", Default: true}},
			SourceAPIVersion:   "60.0",
		},
		auth:  &config.OrgAuth{Username: "dev@example.com", OrgID: orgID, APIVersion: "60.0"},
		clock: clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
	}
}

// syncer builds a fresh syncer, the way every CLI invocation does.
func (e *testEnv) syncer() *sync.Syncer {
	hasher := hash.NewSHA256Hasher(e.fs)
	resolver := metadata.NewResolver(e.fs, metadata.DefaultRegistry(), e.project.PackagePaths())
	store := tracking.NewStore(e.fs, config.TrackingDir(orgID))
	tracker := tracking.NewTracker(e.fs, store, resolver, hasher, e.org, e.clock, nil)
	retriever := retrieve.NewMetadataRetriever(e.org, e.auth.Username, e.fs, resolver, hasher,
		retrieve.WithClock(e.clock),
		retrieve.WithPollInterval(0))
	return sync.New(tracker, retriever, nil)
}

func (e *testEnv) pull(t *testing.T, force bool) *sync.PullResult {
	t.Helper()
	result, err := e.syncer().Pull(context.Background(), &sync.PullRequest{
		Org:            e.auth,
		Project:        e.project,
		ForceOverwrite: force,
		Wait:           time.Minute,
	})
	if err != nil {
		t.Fatalf("Pull() error = %v", err)
	}
	return result
}

func (e *testEnv) read(t *testing.T, name string) string {
	t.Helper()
	data, err := e.fs.ReadFile(name)
	if err != nil {
		t.Fatalf("ReadFile(%s) error = %v", name, err)
	}
	return string(data)
}

func (e *testEnv) exists(t *testing.T, name string) bool {
	t.Helper()
	ok, err := e.fs.Exists(name)
	if err != nil {
		t.Fatalf("Exists(%s) error = %v", name, err)
	}
	return ok
}

func states(files []metadata.FileResponse) map[string]metadata.ComponentStatus {
	out := make(map[string]metadata.ComponentStatus, len(files))
	for _, f := range files {
		out[f.FilePath] = f.State
	}
	return out
}
