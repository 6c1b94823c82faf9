package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yourorg/notisync/internal/client"
	"github.com/yourorg/notisync/internal/event"
	"github.com/yourorg/notisync/internal/model"
	"go.uber.org/zap"
)

// Transport is the slice of the notification API the store drives
type Transport interface {
	List(ctx context.Context, opts client.ListOptions) (*model.ListResponse, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*model.NotificationStats, error)
}

// Config holds store tuning knobs
type Config struct {
	PollInterval time.Duration
	PageSize     int
}

// Store owns the local notification cache and the unread counter. All
// mutations of either go through the store; consumers only read snapshots.
//
// Mutations are optimistic: the cache is updated before the server call
// resolves and is not rolled back on failure. The next refresh resynchronizes
// with the server, so the cache is eventually consistent.
//
// Every mutation bumps an internal version. A refresh records the version
// when its request is issued and discards the response if the version moved
// while the request was in flight, so a stale poll can never overwrite a
// newer optimistic change.
type Store struct {
	transport Transport
	events    *event.Publisher
	cfg       Config
	logger    *zap.Logger

	mu              sync.Mutex
	items           []model.Notification
	unreadCount     int
	hasMore         bool
	version         uint64
	loading         bool
	lastErr         error
	initialLoadDone bool
}

// New creates a notification store. The events publisher may be nil.
func New(transport Transport, events *event.Publisher, cfg Config, logger *zap.Logger) *Store {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 20
	}

	return &Store{
		transport: transport,
		events:    events,
		cfg:       cfg,
		logger:    logger,
	}
}

// Refresh replaces the cached page and unread counter with the server's
// snapshot. It toggles the loading flag and surfaces errors; the background
// poll uses the quiet path instead.
func (s *Store) Refresh(ctx context.Context, opts client.ListOptions) error {
	return s.refresh(ctx, opts, false)
}

func (s *Store) refresh(ctx context.Context, opts client.ListOptions, quiet bool) error {
	s.mu.Lock()
	if !quiet {
		s.loading = true
		s.lastErr = nil
	}
	issuedAt := s.version
	s.mu.Unlock()

	resp, err := s.transport.List(ctx, opts)

	s.mu.Lock()
	if !quiet {
		s.loading = false
	}

	if err != nil {
		if quiet {
			// Polling failures are swallowed: the next tick retries and the
			// cache keeps serving the last good snapshot.
			s.mu.Unlock()
			s.logger.Warn("Background poll failed", zap.Error(err))
			return nil
		}
		s.lastErr = err
		s.mu.Unlock()
		return fmt.Errorf("failed to refresh notifications: %w", err)
	}

	if s.version != issuedAt {
		// A mutation landed while this request was in flight; the snapshot
		// is stale and the next poll will resync.
		version := s.version
		s.mu.Unlock()
		s.logger.Debug("Discarding stale refresh response",
			zap.Uint64("issuedAt", issuedAt),
			zap.Uint64("version", version))
		return nil
	}

	unreadChanged := s.unreadCount != resp.UnreadCount

	s.items = resp.Data
	s.unreadCount = resp.UnreadCount
	if s.unreadCount < 0 {
		s.unreadCount = 0
	}
	s.hasMore = resp.Pagination.HasMore
	unread := s.unreadCount
	s.mu.Unlock()

	if unreadChanged {
		s.publish(ctx, event.DeliveryEvent{Type: event.EventRefreshed, UnreadCount: unread})
	}

	return nil
}

// MarkAsRead optimistically marks a cached notification as read and then
// confirms with the server. The local change stands even if the call fails.
func (s *Store) MarkAsRead(ctx context.Context, id string) error {
	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		if !s.items[i].Read {
			now := time.Now()
			s.items[i].Read = true
			s.items[i].ReadAt = &now
			if s.unreadCount > 0 {
				s.unreadCount--
			}
			s.version++
		}
		break
	}
	unread := s.unreadCount
	s.mu.Unlock()

	if err := s.transport.MarkRead(ctx, id); err != nil {
		s.logger.Error("Failed to mark notification as read",
			zap.String("id", id),
			zap.Error(err))
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}

	s.publish(ctx, event.DeliveryEvent{Type: event.EventRead, NotificationID: id, UnreadCount: unread})
	return nil
}

// MarkAllAsRead optimistically marks every cached notification read and
// zeroes the unread counter, then confirms with the server.
func (s *Store) MarkAllAsRead(ctx context.Context) error {
	s.mu.Lock()
	changed := false
	now := time.Now()
	for i := range s.items {
		if !s.items[i].Read {
			s.items[i].Read = true
			readAt := now
			s.items[i].ReadAt = &readAt
			changed = true
		}
	}
	if s.unreadCount != 0 {
		changed = true
	}
	s.unreadCount = 0
	if changed {
		s.version++
	}
	s.mu.Unlock()

	if err := s.transport.MarkAllRead(ctx); err != nil {
		s.logger.Error("Failed to mark all notifications as read", zap.Error(err))
		return fmt.Errorf("failed to mark all notifications as read: %w", err)
	}

	s.publish(ctx, event.DeliveryEvent{Type: event.EventAllRead, UnreadCount: 0})
	return nil
}

// Delete optimistically removes a cached notification and then confirms with
// the server. An id absent from the cache is a successful no-op, and a
// server-side 404 counts as success since the item is gone either way.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := -1
	for i := range s.items {
		if s.items[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	if !s.items[idx].Read && s.unreadCount > 0 {
		s.unreadCount--
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	s.version++
	unread := s.unreadCount
	s.mu.Unlock()

	if err := s.transport.Delete(ctx, id); err != nil && !errors.Is(err, client.ErrNotFound) {
		s.logger.Error("Failed to delete notification",
			zap.String("id", id),
			zap.Error(err))
		return fmt.Errorf("failed to delete notification: %w", err)
	}

	s.publish(ctx, event.DeliveryEvent{Type: event.EventDeleted, NotificationID: id, UnreadCount: unread})
	return nil
}

// DeleteAll fans out an independent delete per cached notification and
// reports the outcome of each, keyed by notification id. Only the ids whose
// delete succeeded are dropped from the cache.
func (s *Store) DeleteAll(ctx context.Context) map[string]error {
	s.mu.Lock()
	ids := make([]string, 0, len(s.items))
	for i := range s.items {
		ids = append(ids, s.items[i].ID)
	}
	s.mu.Unlock()

	results := make(map[string]error, len(ids))
	if len(ids) == 0 {
		return results
	}

	var wg sync.WaitGroup
	var resultsMu sync.Mutex
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			err := s.transport.Delete(ctx, id)
			if errors.Is(err, client.ErrNotFound) {
				err = nil
			}
			resultsMu.Lock()
			results[id] = err
			resultsMu.Unlock()
		}(id)
	}
	wg.Wait()

	deleted := make(map[string]bool, len(ids))
	for id, err := range results {
		if err == nil {
			deleted[id] = true
		} else {
			s.logger.Error("Failed to delete notification",
				zap.String("id", id),
				zap.Error(err))
		}
	}

	s.mu.Lock()
	kept := s.items[:0]
	unread := 0
	for _, n := range s.items {
		if deleted[n.ID] {
			continue
		}
		kept = append(kept, n)
		if !n.Read {
			unread++
		}
	}
	s.items = kept
	s.unreadCount = unread
	s.version++
	s.mu.Unlock()

	s.publish(ctx, event.DeliveryEvent{Type: event.EventAllDeleted, UnreadCount: unread})
	return results
}

// Stats fetches feed totals straight from the server
func (s *Store) Stats(ctx context.Context) (*model.NotificationStats, error) {
	return s.transport.Stats(ctx)
}

// Seed pre-populates the cache from a saved snapshot. It only applies before
// the first refresh so a warm start can never clobber live data.
func (s *Store) Seed(items []model.Notification, unreadCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialLoadDone || len(s.items) > 0 {
		return
	}
	s.items = append([]model.Notification(nil), items...)
	if unreadCount < 0 {
		unreadCount = 0
	}
	s.unreadCount = unreadCount
}

// Run performs the initial load and then polls the server until ctx is
// cancelled. The initial load is loud and guarded so that a second Run can
// never double-fire it; every subsequent tick is quiet.
func (s *Store) Run(ctx context.Context) {
	s.mu.Lock()
	first := !s.initialLoadDone
	s.initialLoadDone = true
	s.mu.Unlock()

	opts := client.ListOptions{Limit: s.cfg.PageSize}

	if first {
		if err := s.Refresh(ctx, opts); err != nil {
			s.logger.Warn("Initial notification load failed", zap.Error(err))
		}
	}

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Notification polling stopped")
			return
		case <-ticker.C:
			s.refresh(ctx, opts, true)
		}
	}
}

// Snapshot returns a copy of the cached notifications
func (s *Store) Snapshot() []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]model.Notification(nil), s.items...)
}

// Unread returns the current unread counter
func (s *Store) Unread() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.unreadCount
}

// HasMore reports whether the server has pages beyond the cached one
func (s *Store) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.hasMore
}

// Loading reports whether a user-initiated refresh is in flight
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loading
}

// LastError returns the error from the most recent user-initiated refresh
func (s *Store) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastErr
}

func (s *Store) publish(ctx context.Context, ev event.DeliveryEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.Warn("Failed to publish delivery event",
			zap.String("type", ev.Type),
			zap.Error(err))
	}
}
