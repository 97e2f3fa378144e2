// Package redis stores the session blob in Redis, for deployments
// where the demo state should survive host restarts or be shared
// between replicas.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"trading-demov1/internal/model"
	"trading-demov1/internal/store"

	goredis "github.com/go-redis/redis/v8"
)

// Config configures the Redis store.
type Config struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int
}

// Store persists the session blob under the fixed storage key.
type Store struct {
	client *goredis.Client
}

// Client returns the underlying Redis client for health checks.
func (s *Store) Client() *goredis.Client { return s.client }

// New connects to Redis and pings the server.
func New(cfg Config) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Store{client: client}, nil
}

// Load reads the session blob. Missing or malformed blobs fall back to
// defaults.
func (s *Store) Load(ctx context.Context) (*model.SessionState, error) {
	data, err := s.client.Get(ctx, store.StorageKey).Result()
	if err == goredis.Nil {
		return model.DefaultState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis load state: %w", err)
	}

	st := model.DefaultState()
	if err := json.Unmarshal([]byte(data), st); err != nil {
		log.Printf("[redis] malformed session blob, using defaults: %v", err)
		return model.DefaultState(), nil
	}
	st.Sanitize()
	return st, nil
}

// Save writes the full session blob.
func (s *Store) Save(ctx context.Context, st *model.SessionState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, store.StorageKey, data, 0).Err(); err != nil {
		return fmt.Errorf("redis save state: %w", err)
	}
	return nil
}

// Close closes the connection.
func (s *Store) Close() error {
	return s.client.Close()
}
