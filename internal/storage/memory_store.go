package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/rxtech-lab/argo-sizing/internal/types"
)

// MemoryStore is an in-memory implementation of StateStore.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]types.StateRecord
}

// NewMemoryStore creates a new in-memory state store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mu:   sync.RWMutex{},
		data: make(map[string]types.StateRecord),
	}
}

// Save implements StateStore.
func (s *MemoryStore) Save(_ context.Context, rec types.StateRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[rec.BotID] = copyRecord(rec)

	return nil
}

// Load implements StateStore.
func (s *MemoryStore) Load(_ context.Context, botID string) (types.StateRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.data[botID]
	if !exists {
		return types.StateRecord{}, errNotFound(botID) //nolint:exhaustruct
	}

	return copyRecord(rec), nil
}

// Delete implements StateStore.
func (s *MemoryStore) Delete(_ context.Context, botID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[botID]; !exists {
		return errNotFound(botID)
	}

	delete(s.data, botID)

	return nil
}

// List implements StateStore.
func (s *MemoryStore) List(_ context.Context) ([]types.StateRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.StateRecord, 0, len(s.data))
	for _, rec := range s.data {
		out = append(out, copyRecord(rec))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].BotID < out[j].BotID })

	return out, nil
}

// Close implements StateStore.
func (s *MemoryStore) Close() error {
	return nil
}

// copyRecord detaches the state bytes from the caller.
func copyRecord(rec types.StateRecord) types.StateRecord {
	state := make([]byte, len(rec.State))
	copy(state, rec.State)
	rec.State = state

	return rec
}
