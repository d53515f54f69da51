// Package listsync keeps an operator's conversation list consistent with the
// backend: one base fetch enriched with per-conversation latest messages,
// kept current by change-feed notifications that trigger full reloads.
package listsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/helpbench/support-console/internal/model"
	"github.com/helpbench/support-console/internal/store"
	"github.com/helpbench/support-console/pkg/logger"
	"github.com/helpbench/support-console/pkg/metrics"
)

// Backend is the data source for conversation list loads.
type Backend interface {
	ConversationsByWorkspace(ctx context.Context, workspaceID string) ([]model.Conversation, error)
	LatestMessage(ctx context.Context, conversationID string) (*model.Message, error)
}

// Feed delivers workspace-scoped change notifications. Both registrations
// return disposers; the feed is shared across watch connections, so a
// synchronizer must remove exactly its own handlers on teardown.
type Feed interface {
	Subscribe(workspaceID string, handler func(model.ChangeEvent)) (func(), error)
	NotifyStatus(fn func(connected bool)) func()
}

// FetchError wraps a failed base fetch. The whole load fails; callers show an
// error state and retry. Enrichment failures never produce a FetchError.
type FetchError struct {
	WorkspaceID string
	Err         error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to load conversations for workspace %s: %v", e.WorkspaceID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Synchronizer owns the enriched conversation list for one workspace view.
// The snapshot is always replaced wholesale, never patched in place.
type Synchronizer struct {
	backend     Backend
	feed        Feed
	workspaceID string
	logger      *logger.Logger

	mu         sync.Mutex
	snapshot   []model.ListEntry
	loading    bool
	dirty      bool
	degraded   bool
	watching   bool
	onSnapshot func([]model.ListEntry)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a synchronizer for one workspace.
func New(backend Backend, feed Feed, workspaceID string, log *logger.Logger) *Synchronizer {
	return &Synchronizer{
		backend:     backend,
		feed:        feed,
		workspaceID: workspaceID,
		logger:      log,
	}
}

// Load fetches all conversations for the workspace ordered by creation time
// descending and enriches each with its latest message. The result order is
// fixed by the base fetch; enrichment lookups run concurrently and their
// completion order never reorders the list. A conversation whose lookup
// fails or finds nothing yields an entry without a last message.
func (s *Synchronizer) Load(ctx context.Context) ([]model.ListEntry, error) {
	start := time.Now()

	convs, err := s.backend.ConversationsByWorkspace(ctx, s.workspaceID)
	if err != nil {
		metrics.RecordListReload(s.workspaceID, "error", time.Since(start).Seconds())
		return nil, &FetchError{WorkspaceID: s.workspaceID, Err: err}
	}

	entries := make([]model.ListEntry, len(convs))
	var wg sync.WaitGroup
	for i := range convs {
		entries[i].Conversation = convs[i]

		wg.Add(1)
		go func(i int, conversationID string) {
			defer wg.Done()

			msg, err := s.backend.LatestMessage(ctx, conversationID)
			if err != nil {
				if !errors.Is(err, store.ErrNotFound) {
					s.logger.Debug("latest message lookup failed",
						zap.String("conversation_id", conversationID),
						zap.Error(err),
					)
				}
				return
			}
			entries[i].LastMessage = msg
		}(i, convs[i].ID)
	}
	wg.Wait()

	metrics.RecordListReload(s.workspaceID, "success", time.Since(start).Seconds())
	return entries, nil
}

// Watch performs the initial load, delivers it through onSnapshot, then
// subscribes to the change feed. Every notification triggers a full reload;
// reloads are single-flight, with notifications arriving mid-reload coalesced
// into exactly one follow-up. The returned stop function tears down the
// subscription, cancels any in-flight reload, and waits for it to finish.
// At most one Watch per synchronizer instance.
func (s *Synchronizer) Watch(ctx context.Context, onSnapshot func([]model.ListEntry)) (func(), error) {
	s.mu.Lock()
	if s.watching {
		s.mu.Unlock()
		return nil, errors.New("synchronizer is already watching")
	}
	s.watching = true
	s.mu.Unlock()

	entries, err := s.Load(ctx)
	if err != nil {
		s.mu.Lock()
		s.watching = false
		s.mu.Unlock()
		return nil, err
	}

	wctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.ctx = wctx
	s.cancel = cancel
	s.onSnapshot = onSnapshot
	s.snapshot = entries
	s.mu.Unlock()

	onSnapshot(entries)

	unsubscribe, err := s.feed.Subscribe(s.workspaceID, func(model.ChangeEvent) {
		s.requestReload()
	})
	if err != nil {
		cancel()
		s.mu.Lock()
		s.watching = false
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to open change subscription: %w", err)
	}

	unwatchStatus := s.feed.NotifyStatus(func(connected bool) {
		s.mu.Lock()
		s.degraded = !connected
		s.mu.Unlock()

		// A reconnect may have skipped notifications; reload to heal.
		if connected {
			s.requestReload()
		}
	})

	var stopOnce sync.Once
	stop := func() {
		stopOnce.Do(func() {
			unsubscribe()
			unwatchStatus()
			cancel()
			s.wg.Wait()
		})
	}
	return stop, nil
}

// Snapshot returns a copy of the last delivered list.
func (s *Synchronizer) Snapshot() []model.ListEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ListEntry, len(s.snapshot))
	copy(out, s.snapshot)
	return out
}

// Degraded reports whether the change feed transport is currently down.
func (s *Synchronizer) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// requestReload starts a background reload unless one is already running, in
// which case it marks the in-flight reload dirty so exactly one follow-up
// runs once it completes.
func (s *Synchronizer) requestReload() {
	s.mu.Lock()
	if s.ctx == nil || s.ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	if s.loading {
		s.dirty = true
		s.mu.Unlock()
		metrics.ListReloadsCoalesced.WithLabelValues(s.workspaceID).Inc()
		return
	}
	s.loading = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.reloadLoop()
}

func (s *Synchronizer) reloadLoop() {
	defer s.wg.Done()

	for {
		entries, err := s.Load(s.ctx)
		if err != nil {
			// The previous snapshot stays visible; the next notification or
			// reconnect retries.
			s.logger.Error("conversation list reload failed",
				zap.String("workspace_id", s.workspaceID),
				zap.Error(err),
			)
		} else {
			s.deliver(entries)
		}

		s.mu.Lock()
		if s.dirty && s.ctx.Err() == nil {
			s.dirty = false
			s.mu.Unlock()
			continue
		}
		s.loading = false
		s.mu.Unlock()
		return
	}
}

// deliver replaces the snapshot and notifies the watcher, unless the watch
// has been stopped: a cancelled watch must not observe further updates even
// if a reload was mid-flight when it was torn down.
func (s *Synchronizer) deliver(entries []model.ListEntry) {
	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	s.snapshot = entries
	onSnapshot := s.onSnapshot
	s.mu.Unlock()

	if onSnapshot != nil {
		onSnapshot(entries)
	}
}
