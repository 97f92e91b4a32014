package tracking

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/danieljhkim/sourcesync/internal/clock"
	"github.com/danieljhkim/sourcesync/internal/fsops"
	"github.com/danieljhkim/sourcesync/internal/hash"
	"github.com/danieljhkim/sourcesync/internal/metadata"
	"github.com/danieljhkim/sourcesync/internal/org"
	"github.com/danieljhkim/sourcesync/internal/retrieve"
)

// MemberSource lists the org's source members changed since a revision.
type MemberSource interface {
	SourceMembers(ctx context.Context, fromRevision int64) ([]org.SourceMember, error)
}

// Tracker detects local and remote changes for one project and org.
type Tracker struct {
	fs       fsops.FS
	store    *Store
	resolver *metadata.Resolver
	hasher   hash.Hasher
	members  MemberSource
	clock    clock.Clock
	logger   *zap.Logger

	mu     sync.Mutex
	loaded bool
	local  *LocalState
	remote *RemoteState
}

// NewTracker creates a Tracker.
func NewTracker(
	fs fsops.FS,
	store *Store,
	resolver *metadata.Resolver,
	hasher hash.Hasher,
	members MemberSource,
	clk clock.Clock,
	logger *zap.Logger,
) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		fs:       fs,
		store:    store,
		resolver: resolver,
		hasher:   hasher,
		members:  members,
		clock:    clk,
		logger:   logger,
	}
}

// Conflicts returns components with pending changes on both sides.
func (t *Tracker) Conflicts(ctx context.Context) ([]Conflict, error) {
	changes, err := t.GetChanges(ctx, Filter{})
	if err != nil {
		return nil, err
	}

	local := make(map[string]Change)
	for _, c := range changes {
		if c.Origin == OriginLocal {
			local[c.Component.Key()] = c
		}
	}

	var conflicts []Conflict
	for _, rc := range changes {
		if rc.Origin != OriginRemote {
			continue
		}
		lc, ok := local[rc.Component.Key()]
		if !ok || (lc.State == StateDelete && rc.State == StateDelete) {
			continue
		}
		conflicts = append(conflicts, Conflict{
			Component: rc.Component,
			Local:     lc.State,
			Remote:    rc.State,
			FilePaths: lc.FilePaths,
		})
	}
	return conflicts, nil
}

// GetChanges returns the local and remote changes that match filter,
// ordered by origin then component key.
func (t *Tracker) GetChanges(ctx context.Context, filter Filter) ([]Change, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.loadLocked(ctx); err != nil {
		return nil, err
	}

	index, err := t.resolver.Index()
	if err != nil {
		return nil, err
	}

	var changes []Change
	if filter.Origin == "" || filter.Origin == OriginLocal {
		local, err := t.localChanges(index)
		if err != nil {
			return nil, err
		}
		changes = append(changes, local...)
	}
	if filter.Origin == "" || filter.Origin == OriginRemote {
		changes = append(changes, t.remoteChanges(index)...)
	}

	filtered := changes[:0]
	for _, c := range changes {
		if filter.Matches(c) {
			filtered = append(filtered, c)
		}
	}
	return filtered, nil
}

// DeleteFilesAndUpdateTracking removes the files backing changes from the
// project and stages the matching tracking updates. Nothing is written to the
// tracking files until UpdateTrackingFromRetrieve.
func (t *Tracker) DeleteFilesAndUpdateTracking(ctx context.Context, changes []Change) ([]metadata.FileResponse, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.loadLocked(ctx); err != nil {
		return nil, err
	}

	var deleted []metadata.FileResponse
	for _, c := range changes {
		for _, p := range c.FilePaths {
			if err := t.fs.Remove(p); err != nil && !os.IsNotExist(err) {
				return deleted, fmt.Errorf("failed to delete %s: %w", p, err)
			}
			delete(t.local.Files, p)
			deleted = append(deleted, metadata.FileResponse{
				FullName: c.Component.FullName,
				Type:     c.Component.Type,
				State:    metadata.StatusDeleted,
				FilePath: p,
			})
		}
		t.markSyncedLocked(c.Component)
		t.logger.Debug("deleted component",
			zap.String("component", c.Component.Key()),
			zap.Int("files", len(c.FilePaths)))
	}
	return deleted, nil
}

// RemoteNonDeletesAsComponentSet returns every remote add or modify as a set.
func (t *Tracker) RemoteNonDeletesAsComponentSet(ctx context.Context) (*metadata.ComponentSet, error) {
	changes, err := t.GetChanges(ctx, Filter{Origin: OriginRemote})
	if err != nil {
		return nil, err
	}

	cs := metadata.NewComponentSet()
	for _, c := range changes {
		if c.State != StateDelete {
			cs.Add(c.Component)
		}
	}
	return cs, nil
}

// UpdateTrackingFromRetrieve records retrieved files and marks their
// components as synced, then writes both tracking files along with any
// staged deletions. A nil result persists the staged state only.
func (t *Tracker) UpdateTrackingFromRetrieve(ctx context.Context, result *retrieve.Result) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.loadLocked(ctx); err != nil {
		return err
	}

	if result != nil && result.Status.IsSuccess() {
		for _, f := range result.Files {
			if !f.Succeeded() {
				continue
			}
			sum, err := t.hasher.HashFile(f.FilePath)
			if err != nil {
				return fmt.Errorf("failed to hash retrieved file: %w", err)
			}
			t.local.Files[f.FilePath] = sum
			t.markSyncedLocked(f.Component())
		}
	}

	t.remote.LastSync = t.clock.Now().UTC()
	return t.store.Save(t.local, t.remote)
}

// ValidateTrackingFormat checks that existing tracking files can be read by
// this version. Missing files are fine.
func (t *Tracker) ValidateTrackingFormat(ctx context.Context) error {
	for _, name := range []string{t.store.LocalPath(), t.store.RemotePath()} {
		version, err := t.store.Version(name)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return err
		}
		if version != FormatVersion {
			return fmt.Errorf("%w: %s has version %d, expected %d", ErrIncompatibleFormat, name, version, FormatVersion)
		}
	}
	return nil
}

// ClearLocalTracking deletes the local tracking file and returns its path.
func (t *Tracker) ClearLocalTracking(ctx context.Context) (string, error) {
	name := t.store.LocalPath()
	if err := t.store.Remove(name); err != nil {
		return "", err
	}

	t.mu.Lock()
	t.loaded = false
	t.local = nil
	t.mu.Unlock()
	return name, nil
}

// ClearRemoteTracking deletes the remote tracking file and returns its path.
func (t *Tracker) ClearRemoteTracking(ctx context.Context) (string, error) {
	name := t.store.RemotePath()
	if err := t.store.Remove(name); err != nil {
		return "", err
	}

	t.mu.Lock()
	t.loaded = false
	t.remote = nil
	t.mu.Unlock()
	return name, nil
}

// loadLocked reads both tracking files and refreshes the remote side from the
// org. It runs once per Tracker unless tracking is cleared.
func (t *Tracker) loadLocked(ctx context.Context) error {
	if t.loaded {
		return nil
	}

	local, err := t.store.LoadLocal()
	switch {
	case errors.Is(err, os.ErrNotExist):
		// First sync: the current project content is the baseline.
		local, err = t.baseline()
		if err != nil {
			return err
		}
	case err != nil:
		return err
	case local.Version != FormatVersion:
		return fmt.Errorf("%w: %s", ErrIncompatibleFormat, t.store.LocalPath())
	}

	remote, err := t.store.LoadRemote()
	switch {
	case errors.Is(err, os.ErrNotExist):
		remote = NewRemoteState()
	case err != nil:
		return err
	case remote.Version != FormatVersion:
		return fmt.Errorf("%w: %s", ErrIncompatibleFormat, t.store.RemotePath())
	}

	members, err := t.members.SourceMembers(ctx, remote.ServerMaxRevisionCounter)
	if err != nil {
		return fmt.Errorf("failed to query source members: %w", err)
	}
	for _, m := range members {
		key := m.Component().Key()
		entry := remote.SourceMembers[key]
		entry.MemberType = m.MemberType
		entry.MemberName = m.MemberName
		entry.ServerRevisionCounter = m.RevisionCounter
		entry.IsNameObsolete = m.IsNameObsolete
		remote.SourceMembers[key] = entry
		if m.RevisionCounter > remote.ServerMaxRevisionCounter {
			remote.ServerMaxRevisionCounter = m.RevisionCounter
		}
	}

	t.logger.Debug("tracking loaded",
		zap.Int("local_files", len(local.Files)),
		zap.Int("remote_members", len(remote.SourceMembers)),
		zap.Int("refreshed", len(members)))

	t.local = local
	t.remote = remote
	t.loaded = true
	return nil
}

func (t *Tracker) baseline() (*LocalState, error) {
	index, err := t.resolver.Index()
	if err != nil {
		return nil, err
	}
	st := NewLocalState()
	for _, files := range index {
		for _, p := range files {
			sum, err := t.hasher.HashFile(p)
			if err != nil {
				return nil, err
			}
			st.Files[p] = sum
		}
	}
	return st, nil
}

func (t *Tracker) localChanges(index map[string][]string) ([]Change, error) {
	type counts struct {
		added, modified, missing, tracked int
		paths                             []string
	}
	byKey := make(map[string]*counts)
	get := func(key string) *counts {
		c, ok := byKey[key]
		if !ok {
			c = &counts{}
			byKey[key] = c
		}
		return c
	}

	for key, files := range index {
		c := get(key)
		c.paths = append(c.paths, files...)
		for _, p := range files {
			old, ok := t.local.Files[p]
			if !ok {
				c.added++
				continue
			}
			c.tracked++
			sum, err := t.hasher.HashFile(p)
			if err != nil {
				return nil, err
			}
			if sum != old {
				c.modified++
			}
		}
	}

	registry := t.resolver.Registry()
	for p := range t.local.Files {
		component, ok := registry.ComponentForPath(p)
		if !ok {
			continue
		}
		exists, err := t.fs.Exists(p)
		if err != nil {
			return nil, err
		}
		if !exists {
			c := get(component.Key())
			c.missing++
			c.paths = append(c.paths, p)
		}
	}

	var changes []Change
	for key, c := range byKey {
		var state State
		switch {
		case c.missing > 0 && c.tracked == 0 && c.added == 0:
			state = StateDelete
		case c.tracked == 0 && c.missing == 0 && c.added > 0:
			state = StateAdd
		case c.added > 0 || c.modified > 0 || c.missing > 0:
			state = StateModify
		default:
			continue
		}
		component, _ := metadata.ParseKey(key)
		paths := append([]string(nil), c.paths...)
		sort.Strings(paths)
		changes = append(changes, Change{
			Origin:    OriginLocal,
			State:     state,
			Component: component,
			FilePaths: paths,
		})
	}
	sortChanges(changes)
	return changes, nil
}

func (t *Tracker) remoteChanges(index map[string][]string) []Change {
	var changes []Change
	for key, m := range t.remote.SourceMembers {
		if !m.Pending() {
			continue
		}
		files := index[key]
		state := StateModify
		switch {
		case m.IsNameObsolete:
			state = StateDelete
		case len(files) == 0:
			state = StateAdd
		}
		changes = append(changes, Change{
			Origin:    OriginRemote,
			State:     state,
			Component: metadata.Component{Type: m.MemberType, FullName: m.MemberName},
			FilePaths: files,
		})
	}
	sortChanges(changes)
	return changes
}

func (t *Tracker) markSyncedLocked(c metadata.Component) {
	key := c.Key()
	m, ok := t.remote.SourceMembers[key]
	if !ok {
		return
	}
	m.LastRetrievedFromServer = m.ServerRevisionCounter
	t.remote.SourceMembers[key] = m
}

func sortChanges(changes []Change) {
	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Component.Key() < changes[j].Component.Key()
	})
}
