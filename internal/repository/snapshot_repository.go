package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/examforge/examforge-backend/internal/config"
	"github.com/examforge/examforge-backend/internal/model"
	"github.com/redis/go-redis/v9"
)

// SnapshotRepository keeps the progress snapshot of each live session in
// Redis, expiring it after ttl.
type SnapshotRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSnapshotRepository creates a new SnapshotRepository.
func NewSnapshotRepository(rdb *redis.Client, ttl time.Duration) *SnapshotRepository {
	return &SnapshotRepository{rdb: rdb, ttl: ttl}
}

// Save overwrites the snapshot slot of a session.
func (r *SnapshotRepository) Save(ctx context.Context, classID, sessionID string, snap *model.Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	key := config.CacheKey.SessionSnapshotKey(classID, sessionID)
	return r.rdb.Set(ctx, key, b, r.ttl).Err()
}

// Load returns the snapshot of a session, or nil when there is none.
func (r *SnapshotRepository) Load(ctx context.Context, classID, sessionID string) (*model.Snapshot, error) {
	key := config.CacheKey.SessionSnapshotKey(classID, sessionID)
	b, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snap model.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Clear removes the snapshot of a session.
func (r *SnapshotRepository) Clear(ctx context.Context, classID, sessionID string) error {
	key := config.CacheKey.SessionSnapshotKey(classID, sessionID)
	return r.rdb.Del(ctx, key).Err()
}
