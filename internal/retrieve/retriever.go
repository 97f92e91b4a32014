package retrieve

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/danieljhkim/sourcesync/internal/clock"
	"github.com/danieljhkim/sourcesync/internal/fsops"
	"github.com/danieljhkim/sourcesync/internal/hash"
	"github.com/danieljhkim/sourcesync/internal/metadata"
	"github.com/danieljhkim/sourcesync/internal/org"
)

// DefaultPollInterval is how often a running job is checked.
const DefaultPollInterval = time.Second

// OrgClient is the subset of the org API used for retrieves.
type OrgClient interface {
	StartRetrieve(ctx context.Context, req *org.RetrieveRequest) (*org.RetrieveStatus, error)
	CheckRetrieveStatus(ctx context.Context, apiVersion, id string) (*org.RetrieveStatus, error)
}

// MetadataRetriever submits retrieve jobs, polls them and writes the
// retrieved source into the project.
type MetadataRetriever struct {
	client   OrgClient
	username string
	fs       fsops.FS
	resolver *metadata.Resolver
	hasher   hash.Hasher
	clock    clock.Clock
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// Option configures a MetadataRetriever.
type Option func(*MetadataRetriever)

// WithPollInterval sets the minimum delay between status checks.
// Zero or a negative value disables pacing.
func WithPollInterval(d time.Duration) Option {
	return func(r *MetadataRetriever) {
		if d <= 0 {
			r.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		r.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithClock sets the clock used for poll deadlines.
func WithClock(c clock.Clock) Option {
	return func(r *MetadataRetriever) {
		r.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *MetadataRetriever) {
		r.logger = l
	}
}

// NewMetadataRetriever creates a retriever bound to one org identity.
func NewMetadataRetriever(
	client OrgClient,
	username string,
	fs fsops.FS,
	resolver *metadata.Resolver,
	hasher hash.Hasher,
	opts ...Option,
) *MetadataRetriever {
	r := &MetadataRetriever{
		client:   client,
		username: username,
		fs:       fs,
		resolver: resolver,
		hasher:   hasher,
		clock:    &clock.RealClock{},
		limiter:  rate.NewLimiter(rate.Every(DefaultPollInterval), 1),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve submits a retrieve job for req.Components.
func (r *MetadataRetriever) Retrieve(ctx context.Context, req *Request) (*Handle, error) {
	if req.Components.Size() == 0 {
		return nil, fmt.Errorf("nothing to retrieve")
	}
	if err := fsops.ValidateRelPath(req.OutputDir); err != nil {
		return nil, fmt.Errorf("invalid output directory: %w", err)
	}

	cs := req.Components
	status, err := r.client.StartRetrieve(ctx, &org.RetrieveRequest{
		APIVersion: cs.APIVersion,
		Unpackaged: org.RetrievePackage{
			Version: cs.SourceAPIVersion,
			Types:   cs.Manifest(),
		},
	})
	if err != nil {
		return nil, err
	}

	manifestVersion := cs.SourceAPIVersion
	if manifestVersion == "" {
		manifestVersion = cs.APIVersion
	}

	r.logger.Debug("retrieve submitted",
		zap.String("id", status.ID),
		zap.String("api_version", cs.APIVersion),
		zap.Int("components", cs.Size()))

	return &Handle{
		ID:              status.ID,
		Username:        r.username,
		APIVersion:      cs.APIVersion,
		ManifestVersion: manifestVersion,
		OutputDir:       req.OutputDir,
		Status:          RequestStatus(status.Status),
		Components:      cs.ToSlice(),
	}, nil
}

// PollStatus checks the job until it reaches a terminal status or timeout
// elapses. Running out of time is not an error: the last observed
// non-terminal status is returned. A timeout of zero checks exactly once.
func (r *MetadataRetriever) PollStatus(ctx context.Context, h *Handle, timeout time.Duration) (*Result, error) {
	deadline := r.clock.Now().Add(timeout)
	for {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		st, err := r.client.CheckRetrieveStatus(ctx, h.APIVersion, h.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check retrieve status: %w", err)
		}

		status := RequestStatus(st.Status)
		if status != "" && !status.Known() {
			return nil, fmt.Errorf("retrieve %s reported unknown status %q", h.ID, st.Status)
		}
		if st.Done && !status.IsTerminal() {
			status = StatusFailed
			if st.Success {
				status = StatusSucceeded
			}
		}
		if status.IsTerminal() {
			return r.finish(h, status, st)
		}

		r.logger.Debug("retrieve still running", zap.String("id", h.ID), zap.String("status", string(status)))
		if !r.clock.Now().Before(deadline) {
			return &Result{ID: h.ID, Status: status}, nil
		}
	}
}

func (r *MetadataRetriever) finish(h *Handle, status RequestStatus, st *org.RetrieveStatus) (*Result, error) {
	result := &Result{
		ID:           h.ID,
		Status:       status,
		Success:      status.IsSuccess(),
		ErrorMessage: st.ErrorMessage,
		ZipFile:      st.ZipFile,
	}
	for _, m := range st.Messages {
		result.Messages = append(result.Messages, Message{FileName: m.FileName, Problem: m.Problem})
	}

	if !status.IsSuccess() || len(st.ZipFile) == 0 {
		return result, nil
	}

	files, err := r.extract(h.OutputDir, st.ZipFile)
	if err != nil {
		return nil, fmt.Errorf("failed to write retrieved source: %w", err)
	}
	result.Files = files
	return result, nil
}

// extract merges the payload into the project. Components that already exist
// locally are written next to their current files, new ones go to outputDir.
func (r *MetadataRetriever) extract(outputDir string, payload []byte) ([]metadata.FileResponse, error) {
	zr, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return nil, fmt.Errorf("invalid retrieve payload: %w", err)
	}

	index, err := r.resolver.Index()
	if err != nil {
		return nil, err
	}

	var responses []metadata.FileResponse
	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		name := strings.TrimPrefix(path.Clean(entry.Name), "unpackaged/")
		if name == "package.xml" {
			continue
		}
		if err := fsops.ValidateRelPath(name); err != nil {
			return nil, fmt.Errorf("retrieve payload entry %q: %w", entry.Name, err)
		}

		component, ok := r.resolver.Registry().ComponentForPath(name)
		if !ok {
			r.logger.Warn("skipping retrieved file of unknown type", zap.String("file", name))
			continue
		}

		dest := r.destination(outputDir, name, component, index[component.Key()])
		data, err := readEntry(entry)
		if err != nil {
			return nil, err
		}

		state, err := r.write(dest, data)
		if err != nil {
			return nil, err
		}
		responses = append(responses, metadata.FileResponse{
			FullName: component.FullName,
			Type:     component.Type,
			State:    state,
			FilePath: dest,
		})
	}

	sort.Slice(responses, func(i, j int) bool {
		return responses[i].FilePath < responses[j].FilePath
	})
	return responses, nil
}

func (r *MetadataRetriever) destination(outputDir, name string, component metadata.Component, existing []string) string {
	if len(existing) == 0 {
		return path.Join(outputDir, name)
	}
	info, ok := r.resolver.Registry().Type(component.Type)
	if !ok {
		return path.Join(outputDir, name)
	}

	segments := strings.Split(existing[0], "/")
	for i, seg := range segments {
		if seg == info.DirectoryName {
			return path.Join(append(segments[:i:i], name)...)
		}
	}
	return path.Join(outputDir, name)
}

func (r *MetadataRetriever) write(dest string, data []byte) (metadata.ComponentStatus, error) {
	exists, err := r.fs.Exists(dest)
	if err != nil {
		return "", err
	}

	state := metadata.StatusCreated
	if exists {
		current, err := r.hasher.HashFile(dest)
		if err != nil {
			return "", err
		}
		if current == r.hasher.HashBytes(data) {
			return metadata.StatusUnchanged, nil
		}
		state = metadata.StatusChanged
	}

	if err := r.fs.WriteFile(dest, data, 0644); err != nil {
		return "", err
	}
	return state, nil
}

func readEntry(entry *zip.File) ([]byte, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", entry.Name, err)
	}
	defer func() {
		_ = rc.Close()
	}()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", entry.Name, err)
	}
	return data, nil
}
