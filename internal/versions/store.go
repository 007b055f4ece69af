package versions

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/diff"
	"github.com/dmitrijs2005/notekeeper/internal/localdb"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/notify"
	"github.com/google/uuid"
)

const (
	DefaultMaxPerResource = 50
	DefaultMaxTotal       = 1000
	DefaultPersistKey     = "notekeeper.version_history"
)

// Options tunes retention caps and the persistence key.
type Options struct {
	MaxPerResource int
	MaxTotal       int
	PersistKey     string
}

func (o *Options) withDefaults() {
	if o.MaxPerResource <= 0 {
		o.MaxPerResource = DefaultMaxPerResource
	}
	if o.MaxTotal <= 0 {
		o.MaxTotal = DefaultMaxTotal
	}
	if o.PersistKey == "" {
		o.PersistKey = DefaultPersistKey
	}
}

// Store owns all version objects and the resource index for the process
// lifetime. It is the only writer; every public operation is synchronous and
// completes its mutation before returning.
type Store struct {
	mu       sync.Mutex
	versions map[string]*Version
	index    map[string][]string // resource id -> version ids, newest first

	persist  localdb.Store // nil disables persistence
	notifier *notify.Notifier
	log      logging.Logger
	opts     Options

	now func() time.Time
}

// NewStore builds a Store and loads previously persisted state. A corrupt or
// unreadable persisted document is logged and degrades to an empty store; it
// never fails construction.
func NewStore(ctx context.Context, persist localdb.Store, notifier *notify.Notifier, log logging.Logger, opts Options) *Store {
	opts.withDefaults()
	s := &Store{
		versions: make(map[string]*Version),
		index:    make(map[string][]string),
		persist:  persist,
		notifier: notifier,
		log:      log,
		opts:     opts,
		now:      time.Now,
	}
	s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) {
	if s.persist == nil {
		return
	}
	raw, ok, err := s.persist.Get(ctx, s.opts.PersistKey)
	if err != nil {
		s.log.Warn(ctx, "failed to read persisted history, starting empty", "err", err)
		return
	}
	if !ok {
		return
	}
	var state persistedState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		s.log.Warn(ctx, "corrupt persisted history, starting empty", "err", err)
		return
	}
	if state.Versions != nil {
		s.versions = state.Versions
	}
	if state.Index != nil {
		s.index = state.Index
	}
}

// persistLocked serializes the current state. Called with s.mu held; the
// actual write happens best-effort and failures only log.
func (s *Store) persistLocked(ctx context.Context) {
	if s.persist == nil {
		return
	}
	raw, err := json.Marshal(persistedState{Versions: s.versions, Index: s.index})
	if err != nil {
		s.log.Error(ctx, "failed to serialize history", "err", err)
		return
	}
	if err := s.persist.Set(ctx, s.opts.PersistKey, string(raw)); err != nil {
		s.log.Warn(ctx, "failed to persist history", "err", err)
	}
}

// SaveVersion creates and stores a new immutable version for resourceID.
// When changeSummary is empty it is derived from the character-length delta
// against the previous latest version (not a full diff). The new version is
// prepended to the resource index; retention caps are enforced; subscribers
// are notified synchronously with the new version.
func (s *Store) SaveVersion(ctx context.Context, resourceID, content, authorID, authorName, changeSummary string) *Version {
	s.mu.Lock()

	if changeSummary == "" {
		changeSummary = s.autoSummaryLocked(resourceID, content)
	}

	v := &Version{
		ID:            uuid.NewString(),
		ResourceID:    resourceID,
		Content:       content,
		Timestamp:     s.now(),
		AuthorID:      authorID,
		AuthorName:    authorName,
		ChangeSummary: changeSummary,
	}

	s.versions[v.ID] = v
	s.index[resourceID] = append([]string{v.ID}, s.index[resourceID]...)

	s.pruneResourceLocked(resourceID)
	s.pruneGlobalLocked()
	s.persistLocked(ctx)

	s.mu.Unlock()

	s.notifier.Publish(notify.Event{
		Kind:       notify.EventVersionSaved,
		ResourceID: resourceID,
		VersionID:  v.ID,
		Payload:    v,
	})

	return v
}

func (s *Store) autoSummaryLocked(resourceID, content string) string {
	ids := s.index[resourceID]
	if len(ids) == 0 {
		return "Initial version"
	}
	prev := s.versions[ids[0]]
	switch d := len(content) - len(prev.Content); {
	case d == 0:
		return "Minor edits"
	case d > 0:
		return fmt.Sprintf("Added %d characters", d)
	default:
		return fmt.Sprintf("Removed %d characters", -d)
	}
}

// pruneResourceLocked drops the oldest entries of one resource beyond the
// per-resource cap.
func (s *Store) pruneResourceLocked(resourceID string) {
	ids := s.index[resourceID]
	if len(ids) <= s.opts.MaxPerResource {
		return
	}
	for _, id := range ids[s.opts.MaxPerResource:] {
		delete(s.versions, id)
	}
	s.index[resourceID] = ids[:s.opts.MaxPerResource]
}

// pruneGlobalLocked drops the globally oldest versions (by timestamp, across
// all resources) when the total count exceeds the global cap.
func (s *Store) pruneGlobalLocked() {
	excess := len(s.versions) - s.opts.MaxTotal
	if excess <= 0 {
		return
	}

	all := make([]*Version, 0, len(s.versions))
	for _, v := range s.versions {
		all = append(all, v)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].Timestamp.Equal(all[j].Timestamp) {
			return all[i].Timestamp.Before(all[j].Timestamp)
		}
		return all[i].ID < all[j].ID
	})

	for _, v := range all[:excess] {
		delete(s.versions, v.ID)
		s.removeFromIndexLocked(v.ResourceID, v.ID)
	}
}

func (s *Store) removeFromIndexLocked(resourceID, id string) {
	ids := s.index[resourceID]
	for i, x := range ids {
		if x == id {
			s.index[resourceID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(s.index[resourceID]) == 0 {
		delete(s.index, resourceID)
	}
}

// GetVersions returns the versions of a resource, newest first. The result is
// a fresh slice; an unknown resource yields an empty one.
func (s *Store) GetVersions(resourceID string) []*Version {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.index[resourceID]
	result := make([]*Version, 0, len(ids))
	for _, id := range ids {
		if v, ok := s.versions[id]; ok {
			result = append(result, v)
		}
	}
	return result
}

// GetVersion returns the version with the given id, or common.ErrorNotFound.
func (s *Store) GetVersion(id string) (*Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.versions[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return v, nil
}

// GetLatestVersion returns the most recent version of a resource, or
// common.ErrorNotFound when the resource has no versions.
func (s *Store) GetLatestVersion(resourceID string) (*Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.index[resourceID]
	if len(ids) == 0 {
		return nil, common.ErrorNotFound
	}
	v, ok := s.versions[ids[0]]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return v, nil
}

// RestoreVersion returns the version to be applied by the caller. It does not
// mutate live resource content itself, but fires the restored hook so
// observers can react.
func (s *Store) RestoreVersion(id string) (*Version, error) {
	v, err := s.GetVersion(id)
	if err != nil {
		return nil, err
	}

	s.notifier.Publish(notify.Event{
		Kind:       notify.EventVersionRestored,
		ResourceID: v.ResourceID,
		VersionID:  v.ID,
		Payload:    v,
	})
	return v, nil
}

// DeleteVersion removes a single version. It reports whether anything was
// deleted.
func (s *Store) DeleteVersion(ctx context.Context, id string) bool {
	s.mu.Lock()
	v, ok := s.versions[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.versions, id)
	s.removeFromIndexLocked(v.ResourceID, id)
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.notifier.Publish(notify.Event{
		Kind:       notify.EventVersionDeleted,
		ResourceID: v.ResourceID,
		VersionID:  id,
	})
	return true
}

// DeleteResourceVersions removes every version of a resource, firing one
// deletion notification per removed id. It reports whether anything was
// deleted.
func (s *Store) DeleteResourceVersions(ctx context.Context, resourceID string) bool {
	s.mu.Lock()
	ids := s.index[resourceID]
	if len(ids) == 0 {
		s.mu.Unlock()
		return false
	}
	removed := make([]string, len(ids))
	copy(removed, ids)
	for _, id := range ids {
		delete(s.versions, id)
	}
	delete(s.index, resourceID)
	s.persistLocked(ctx)
	s.mu.Unlock()

	for _, id := range removed {
		s.notifier.Publish(notify.Event{
			Kind:       notify.EventVersionDeleted,
			ResourceID: resourceID,
			VersionID:  id,
		})
	}
	return true
}

// CompareVersions diffs two stored versions (a as old, b as new).
func (s *Store) CompareVersions(idA, idB string) (*diff.Result, error) {
	a, err := s.GetVersion(idA)
	if err != nil {
		return nil, err
	}
	b, err := s.GetVersion(idB)
	if err != nil {
		return nil, err
	}
	return diff.Diff(a.Content, b.Content), nil
}

// CompareWithCurrent diffs a stored version against live content.
func (s *Store) CompareWithCurrent(id, currentContent string) (*diff.Result, error) {
	v, err := s.GetVersion(id)
	if err != nil {
		return nil, err
	}
	return diff.Diff(v.Content, currentContent), nil
}

// GetFilteredVersions returns versions matching the filter, newest first,
// paginated by Offset/Limit.
func (s *Store) GetFilteredVersions(f Filter) []*Version {
	s.mu.Lock()
	defer s.mu.Unlock()

	resourceSet := toSet(f.ResourceIDs)
	authorSet := toSet(f.AuthorIDs)

	matched := make([]*Version, 0)
	for _, v := range s.versions {
		if resourceSet != nil {
			if _, ok := resourceSet[v.ResourceID]; !ok {
				continue
			}
		}
		if authorSet != nil {
			if _, ok := authorSet[v.AuthorID]; !ok {
				continue
			}
		}
		if f.From != nil && v.Timestamp.Before(*f.From) {
			continue
		}
		if f.To != nil && v.Timestamp.After(*f.To) {
			continue
		}
		matched = append(matched, v)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].Timestamp.After(matched[j].Timestamp)
		}
		return matched[i].ID > matched[j].ID
	})

	if f.Offset >= len(matched) {
		return []*Version{}
	}
	matched = matched[f.Offset:]
	if f.Limit > 0 && f.Limit < len(matched) {
		matched = matched[:f.Limit]
	}
	return matched
}

// Subscribe registers a callback invoked synchronously with every newly saved
// version. The returned function unsubscribes.
func (s *Store) Subscribe(fn func(*Version)) func() {
	return s.notifier.Subscribe(func(e notify.Event) {
		if e.Kind != notify.EventVersionSaved {
			return
		}
		if v, ok := e.Payload.(*Version); ok {
			fn(v)
		}
	})
}

// Count reports the total number of versions currently held.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.versions)
}

func toSet(xs []string) map[string]struct{} {
	if len(xs) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(xs))
	for _, x := range xs {
		set[x] = struct{}{}
	}
	return set
}
