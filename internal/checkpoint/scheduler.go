// Package checkpoint decouples rapid content edits from version creation.
// Edits are parked as a single pending entry per resource; a periodic sweep
// commits entries that have been sitting longer than the auto-save threshold.
package checkpoint

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/versions"
)

const (
	DefaultSweepInterval     = 5 * time.Second
	DefaultAutoSaveThreshold = 5 * time.Second

	// Author identity used when a resource has no prior version to inherit from.
	unknownAuthorID   = "unknown"
	unknownAuthorName = "Unknown"
)

type pendingEntry struct {
	content    string
	capturedAt time.Time
}

// Scheduler buffers the latest pending content per resource and periodically
// turns stale entries into "Auto-saved" versions.
type Scheduler struct {
	mu      sync.Mutex
	pending map[string]pendingEntry

	store     *versions.Store
	log       logging.Logger
	interval  time.Duration
	threshold time.Duration

	now    func() time.Time
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler builds a stopped scheduler. Zero interval/threshold select the
// defaults.
func NewScheduler(store *versions.Store, log logging.Logger, interval, threshold time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if threshold <= 0 {
		threshold = DefaultAutoSaveThreshold
	}
	return &Scheduler{
		pending:   make(map[string]pendingEntry),
		store:     store,
		log:       log,
		interval:  interval,
		threshold: threshold,
		now:       time.Now,
	}
}

// ScheduleAutoSave records or overwrites the single pending entry for
// resourceID. Only the latest pending content per resource is kept; earlier
// pending content is discarded, not queued. The author arguments mirror the
// save call shape, but the committed checkpoint inherits its author from the
// resource's current latest version at sweep time.
func (s *Scheduler) ScheduleAutoSave(resourceID, content, _, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[resourceID] = pendingEntry{content: content, capturedAt: s.now()}
}

// PendingCount reports how many resources currently have a parked edit.
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Sweep runs one pass: every pending entry older than the threshold becomes a
// version with summary "Auto-saved", then is cleared. At most one checkpoint
// per resource per pass.
func (s *Scheduler) Sweep(ctx context.Context) {
	cutoff := s.now().Add(-s.threshold)

	s.mu.Lock()
	ripe := make(map[string]pendingEntry)
	for resourceID, entry := range s.pending {
		if entry.capturedAt.Before(cutoff) {
			ripe[resourceID] = entry
			delete(s.pending, resourceID)
		}
	}
	s.mu.Unlock()

	for resourceID, entry := range ripe {
		authorID, authorName := unknownAuthorID, unknownAuthorName
		if latest, err := s.store.GetLatestVersion(resourceID); err == nil {
			authorID, authorName = latest.AuthorID, latest.AuthorName
		}
		v := s.store.SaveVersion(ctx, resourceID, entry.content, authorID, authorName, "Auto-saved")
		s.log.Debug(ctx, "auto-saved checkpoint", "resource", resourceID, "version", v.ID)
	}
}

// Start launches the periodic sweep. It is a no-op when already running.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.run(ctx)
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Stop cancels the periodic sweep and waits for the loop to exit. Safe to
// call on a scheduler that was never started.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
