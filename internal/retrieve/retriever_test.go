package retrieve

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/danieljhkim/sourcesync/internal/clock"
	"github.com/danieljhkim/sourcesync/internal/fsops"
	"github.com/danieljhkim/sourcesync/internal/hash"
	"github.com/danieljhkim/sourcesync/internal/metadata"
	"github.com/danieljhkim/sourcesync/internal/org"
)

type fakeOrgClient struct {
	started  *org.RetrieveRequest
	statuses []*org.RetrieveStatus
	checks   int
	startErr error
}

func (f *fakeOrgClient) StartRetrieve(_ context.Context, req *org.RetrieveRequest) (*org.RetrieveStatus, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.started = req
	return &org.RetrieveStatus{ID: "09S000000000001", Status: string(StatusPending)}, nil
}

func (f *fakeOrgClient) CheckRetrieveStatus(_ context.Context, _, _ string) (*org.RetrieveStatus, error) {
	i := f.checks
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	f.checks++
	return f.statuses[i], nil
}

func buildZip(t *testing.T, files map[string]string) []byte {
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

func newTestRetriever(t *testing.T, client *fakeOrgClient, fs fsops.FS, clk clock.Clock, opts ...Option) *MetadataRetriever {
	t.Helper()
	resolver := metadata.NewResolver(fs, metadata.DefaultRegistry(), []string{"force-app", "other"})
	opts = append([]Option{WithPollInterval(0), WithClock(clk)}, opts...)
	return NewMetadataRetriever(client, "dev@example.com", fs, resolver, hash.NewSHA256Hasher(fs), opts...)
}

func TestRequestStatus_IsTerminal(t *testing.T) {
	terminal := map[RequestStatus]bool{
		StatusPending:          false,
		StatusInProgress:       false,
		StatusSucceeded:        true,
		StatusSucceededPartial: true,
		StatusFailed:           true,
		StatusCanceling:        false,
		StatusCanceled:         true,
	}
	for _, s := range AllStatuses {
		t.Run(string(s), func(t *testing.T) {
			assert.True(t, s.Known())
			assert.Equal(t, terminal[s], s.IsTerminal())
		})
	}
}

func TestRetrieve_SubmitsManifest(t *testing.T) {
	client := &fakeOrgClient{}
	fs := fsops.NewMemFS()
	r := newTestRetriever(t, client, fs, clock.NewFakeClock(time.Unix(0, 0)))

	cs := metadata.NewComponentSet(
		metadata.Component{Type: "ApexClass", FullName: "B"},
		metadata.Component{Type: "ApexClass", FullName: "A"},
	)
	cs.APIVersion = "61.0"
	cs.SourceAPIVersion = "60.0"

	h, err := r.Retrieve(context.Background(), &Request{Components: cs, OutputDir: "force-app/main/default"})
	require.NoError(t, err)

	assert.Equal(t, "09S000000000001", h.ID)
	assert.Equal(t, "61.0", h.APIVersion)
	assert.Equal(t, "60.0", h.ManifestVersion)
	assert.Equal(t, "dev@example.com", h.Username)
	require.NotNil(t, client.started)
	assert.Equal(t, "61.0", client.started.APIVersion)
	assert.Equal(t, "60.0", client.started.Unpackaged.Version)
	require.Len(t, client.started.Unpackaged.Types, 1)
	assert.Equal(t, []string{"A", "B"}, client.started.Unpackaged.Types[0].Members)
}

func TestRetrieve_EmptySet(t *testing.T) {
	client := &fakeOrgClient{}
	r := newTestRetriever(t, client, fsops.NewMemFS(), clock.NewFakeClock(time.Unix(0, 0)))

	_, err := r.Retrieve(context.Background(), &Request{Components: metadata.NewComponentSet(), OutputDir: "force-app"})
	assert.Error(t, err)
	assert.Nil(t, client.started)
}

func TestPollStatus_TimeoutReturnsLastStatus(t *testing.T) {
	client := &fakeOrgClient{statuses: []*org.RetrieveStatus{{ID: "1", Status: string(StatusInProgress)}}}
	clk := clock.NewFakeClock(time.Unix(0, 0))
	clk.SetStep(time.Minute)
	r := newTestRetriever(t, client, fsops.NewMemFS(), clk)

	result, err := r.PollStatus(context.Background(), &Handle{ID: "1", APIVersion: "60.0"}, 3*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, result.Status)
	assert.False(t, result.Success)
	assert.Empty(t, result.Files)
	assert.GreaterOrEqual(t, client.checks, 2)
}

func TestPollStatus_ZeroTimeoutChecksOnce(t *testing.T) {
	client := &fakeOrgClient{statuses: []*org.RetrieveStatus{{ID: "1", Status: string(StatusPending)}}}
	r := newTestRetriever(t, client, fsops.NewMemFS(), clock.NewFakeClock(time.Unix(0, 0)))

	result, err := r.PollStatus(context.Background(), &Handle{ID: "1"}, 0)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, result.Status)
	assert.Equal(t, 1, client.checks)
}

func TestPollStatus_CanceledContext(t *testing.T) {
	client := &fakeOrgClient{statuses: []*org.RetrieveStatus{{ID: "1", Status: string(StatusPending)}}}
	r := newTestRetriever(t, client, fsops.NewMemFS(), clock.NewFakeClock(time.Unix(0, 0)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.PollStatus(ctx, &Handle{ID: "1"}, time.Minute)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestPollStatus_MergesRetrievedSource(t *testing.T) {
	fs := fsops.NewMemFS()
	require.NoError(t, fs.WriteFile("other/classes/Existing.cls", []byte("old"), 0644))
	require.NoError(t, fs.WriteFile("other/classes/Existing.cls-meta.xml", []byte("meta"), 0644))

	payload := buildZip(t, map[string]string{
		"unpackaged/package.xml":                   "<Package/>",
		"unpackaged/classes/Existing.cls":          "new",
		"unpackaged/classes/Existing.cls-meta.xml": "meta",
		"unpackaged/classes/Fresh.cls":             "fresh",
		"unpackaged/unknown/thing.txt":             "skip",
	})
	client := &fakeOrgClient{statuses: []*org.RetrieveStatus{
		{ID: "1", Status: string(StatusInProgress)},
		{ID: "1", Status: string(StatusSucceeded), Done: true, Success: true, ZipFile: payload},
	}}
	core, logs := observer.New(zapcore.WarnLevel)
	r := newTestRetriever(t, client, fs, clock.NewFakeClock(time.Unix(0, 0)), WithLogger(zap.New(core)))

	result, err := r.PollStatus(context.Background(), &Handle{ID: "1", OutputDir: "force-app/main/default"}, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, result.Status)
	assert.True(t, result.Success)
	assert.Equal(t, payload, result.ZipFile)

	want := []metadata.FileResponse{
		{FullName: "Fresh", Type: "ApexClass", State: metadata.StatusCreated, FilePath: "force-app/main/default/classes/Fresh.cls"},
		{FullName: "Existing", Type: "ApexClass", State: metadata.StatusChanged, FilePath: "other/classes/Existing.cls"},
		{FullName: "Existing", Type: "ApexClass", State: metadata.StatusUnchanged, FilePath: "other/classes/Existing.cls-meta.xml"},
	}
	assert.Equal(t, want, result.Files)

	data, err := fs.ReadFile("other/classes/Existing.cls")
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	exists, err := fs.Exists("force-app/main/default/unknown/thing.txt")
	require.NoError(t, err)
	assert.False(t, exists)

	skipped := logs.FilterMessage("skipping retrieved file of unknown type").All()
	require.Len(t, skipped, 1)
	assert.Equal(t, "unknown/thing.txt", skipped[0].ContextMap()["file"])
}

func TestPollStatus_FailedKeepsMessages(t *testing.T) {
	client := &fakeOrgClient{statuses: []*org.RetrieveStatus{{
		ID:           "1",
		Status:       string(StatusFailed),
		Done:         true,
		ErrorMessage: "INVALID_SESSION",
		Messages:     []org.RetrieveMessage{{FileName: "classes/A.cls", Problem: "bad"}},
	}}}
	r := newTestRetriever(t, client, fsops.NewMemFS(), clock.NewFakeClock(time.Unix(0, 0)))

	result, err := r.PollStatus(context.Background(), &Handle{ID: "1"}, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, result.Status)
	assert.False(t, result.Success)
	assert.Equal(t, "INVALID_SESSION", result.ErrorMessage)
	assert.Equal(t, []Message{{FileName: "classes/A.cls", Problem: "bad"}}, result.Messages)
}

func TestPollStatus_DoneWithoutStatus(t *testing.T) {
	client := &fakeOrgClient{statuses: []*org.RetrieveStatus{{ID: "1", Done: true, Success: true}}}
	r := newTestRetriever(t, client, fsops.NewMemFS(), clock.NewFakeClock(time.Unix(0, 0)))

	result, err := r.PollStatus(context.Background(), &Handle{ID: "1"}, 0)
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, result.Status)
}

func TestPollStatus_UnknownStatus(t *testing.T) {
	client := &fakeOrgClient{statuses: []*org.RetrieveStatus{{ID: "1", Status: "Queued"}}}
	r := newTestRetriever(t, client, fsops.NewMemFS(), clock.NewFakeClock(time.Unix(0, 0)))

	_, err := r.PollStatus(context.Background(), &Handle{ID: "1"}, time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown status "Queued"`)
	assert.Equal(t, 1, client.checks)
}
