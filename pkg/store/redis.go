package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/rueidis"
)

// RedisStore keeps the latest snapshot under a single Redis key.
type RedisStore struct {
	client rueidis.Client
	key    string
}

// RedisConfig holds connection settings for the Redis backend.
type RedisConfig struct {
	// Addr is the Redis server address, e.g. "localhost:6379".
	Addr     string
	Username string
	Password string
	// DB is the Redis database number (0-15).
	DB int
	// Key is the key the snapshot is stored under.
	Key         string
	DialTimeout time.Duration
}

// DefaultRedisConfig returns a default Redis configuration.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:        "localhost:6379",
		Key:         "bankledger:snapshot",
		DialTimeout: 5 * time.Second,
	}
}

// NewRedisStore connects to Redis and verifies the connection with a ping.
func NewRedisStore(config RedisConfig) (*RedisStore, error) {
	if config.Addr == "" {
		return nil, fmt.Errorf("redis store: address required")
	}
	if config.Key == "" {
		config.Key = "bankledger:snapshot"
	}
	if config.DialTimeout == 0 {
		config.DialTimeout = 5 * time.Second
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress: []string{config.Addr},
		Username:    config.Username,
		Password:    config.Password,
		SelectDB:    config.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("redis store: create client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.DialTimeout)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis store: ping: %w", err)
	}

	return &RedisStore{client: client, key: config.Key}, nil
}

// Save serializes the snapshot and overwrites the snapshot key.
func (s *RedisStore) Save(ctx context.Context, snap Snapshot) error {
	snap.stamp(s.Name())

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis store: marshal: %w", err)
	}

	cmd := s.client.B().Set().Key(s.key).Value(string(data)).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("redis store: set: %w", err)
	}
	return nil
}

// Load reads and deserializes the snapshot key.
func (s *RedisStore) Load(ctx context.Context) (Snapshot, error) {
	var snap Snapshot

	resp := s.client.Do(ctx, s.client.B().Get().Key(s.key).Build())
	if err := resp.Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return snap, ErrSnapshotNotFound
		}
		return snap, fmt.Errorf("redis store: get: %w", err)
	}

	data, err := resp.AsBytes()
	if err != nil {
		return snap, fmt.Errorf("redis store: read response: %w", err)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("redis store: unmarshal: %w", err)
	}
	return snap, nil
}

// Name returns the backend identifier.
func (s *RedisStore) Name() string { return "redis" }

// Close shuts down the Redis client.
func (s *RedisStore) Close() error {
	s.client.Close()
	return nil
}
