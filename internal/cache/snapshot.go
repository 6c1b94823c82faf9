package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/yourorg/notisync/internal/model"
	"go.uber.org/zap"
)

// Snapshot is the persisted form of the notification feed
type Snapshot struct {
	Items       []model.Notification `json:"items"`
	UnreadCount int                  `json:"unread_count"`
	SavedAt     time.Time            `json:"saved_at"`
}

// SnapshotCache persists the feed to Redis so a restarted agent can show the
// last known state before its first refresh completes
type SnapshotCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger *zap.Logger
}

// NewSnapshotCache creates a snapshot cache over an existing Redis client
func NewSnapshotCache(client *redis.Client, key string, ttl time.Duration, logger *zap.Logger) *SnapshotCache {
	return &SnapshotCache{
		client: client,
		key:    key,
		ttl:    ttl,
		logger: logger,
	}
}

// Save writes the current feed state
func (c *SnapshotCache) Save(ctx context.Context, items []model.Notification, unreadCount int) error {
	snapshot := Snapshot{
		Items:       items,
		UnreadCount: unreadCount,
		SavedAt:     time.Now(),
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal feed snapshot: %w", err)
	}

	if err := c.client.Set(ctx, c.key, payload, c.ttl).Err(); err != nil {
		c.logger.Error("Failed to save feed snapshot", zap.Error(err))
		return fmt.Errorf("failed to save feed snapshot: %w", err)
	}

	return nil
}

// Load returns the saved feed state, or nil when none exists
func (c *SnapshotCache) Load(ctx context.Context) (*Snapshot, error) {
	payload, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load feed snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal feed snapshot: %w", err)
	}

	return &snapshot, nil
}
