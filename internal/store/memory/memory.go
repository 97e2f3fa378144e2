// Package memory is the in-process fallback store used when no durable
// backend is available or the configured one fails to open. State is
// lost on restart, which keeps the page interactive per the error
// design.
package memory

import (
	"context"
	"encoding/json"
	"sync"

	"trading-demov1/internal/model"
)

// Store keeps the session blob in memory.
type Store struct {
	mu   sync.Mutex
	blob []byte
}

// New returns an empty in-memory store.
func New() *Store { return &Store{} }

// Load returns the stored state, or defaults when nothing was saved.
func (s *Store) Load(ctx context.Context) (*model.SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.blob == nil {
		return model.DefaultState(), nil
	}
	st := model.DefaultState()
	if err := json.Unmarshal(s.blob, st); err != nil {
		return model.DefaultState(), nil
	}
	st.Sanitize()
	return st, nil
}

// Save keeps a serialized copy so Load returns an independent value.
func (s *Store) Save(ctx context.Context, st *model.SessionState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.blob = data
	s.mu.Unlock()
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
