package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CheckpointStore persists each reviewer's "last acknowledged" timestamp.
type CheckpointStore interface {
	Load(ctx context.Context, reviewerID uint) (time.Time, bool, error)
	Save(ctx context.Context, reviewerID uint, at time.Time) error
}

// RedisCheckpointStore keeps checkpoints in redis so they survive restarts and are shared across nodes.
type RedisCheckpointStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCheckpointStore constructs the redis store. A zero ttl keeps checkpoints forever.
func NewRedisCheckpointStore(client *redis.Client, ttl time.Duration) *RedisCheckpointStore {
	return &RedisCheckpointStore{client: client, ttl: ttl}
}

func checkpointKey(reviewerID uint) string {
	return fmt.Sprintf("notifier:checkpoint:%d", reviewerID)
}

// Load returns the stored checkpoint; ok is false when none was saved.
func (s *RedisCheckpointStore) Load(ctx context.Context, reviewerID uint) (time.Time, bool, error) {
	raw, err := s.client.Get(ctx, checkpointKey(reviewerID)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	at, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("corrupt checkpoint for reviewer %d: %w", reviewerID, err)
	}
	return at, true, nil
}

// Save overwrites the checkpoint.
func (s *RedisCheckpointStore) Save(ctx context.Context, reviewerID uint, at time.Time) error {
	return s.client.Set(ctx, checkpointKey(reviewerID), at.UTC().Format(time.RFC3339Nano), s.ttl).Err()
}

// MemoryCheckpointStore is the single-node fallback used when redis is not configured.
type MemoryCheckpointStore struct {
	mu     sync.RWMutex
	values map[uint]time.Time
}

// NewMemoryCheckpointStore constructs an empty in-process store.
func NewMemoryCheckpointStore() *MemoryCheckpointStore {
	return &MemoryCheckpointStore{values: make(map[uint]time.Time)}
}

// Load returns the stored checkpoint; ok is false when none was saved.
func (s *MemoryCheckpointStore) Load(_ context.Context, reviewerID uint) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	at, ok := s.values[reviewerID]
	return at, ok, nil
}

// Save overwrites the checkpoint.
func (s *MemoryCheckpointStore) Save(_ context.Context, reviewerID uint, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[reviewerID] = at
	return nil
}
