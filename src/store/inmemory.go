package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"relay-agent/src/contracts"
)

// InMemoryStore is a thread-safe in-memory implementation of Store.
// Used in local mode, where build history only needs to outlive the TUI.
type InMemoryStore struct {
	mu     sync.RWMutex
	builds map[string]contracts.BuildRecord
}

// NewInMemoryStore creates a new in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		builds: make(map[string]contracts.BuildRecord),
	}
}

// CreateBuild records a started build.
func (s *InMemoryStore) CreateBuild(ctx context.Context, rec *contracts.BuildRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.builds[rec.ID] = *rec
	return nil
}

// FinishBuild records the terminal state of a build.
func (s *InMemoryStore) FinishBuild(ctx context.Context, id string, state contracts.BuildState, exitCode int, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.builds[id]
	if !ok {
		return ErrNotFound{BuildID: id}
	}

	rec.State = state
	rec.ExitCode = exitCode
	rec.Description = description
	rec.FinishedAt = time.Now()
	s.builds[id] = rec
	return nil
}

// GetBuild returns a single build record by ID.
func (s *InMemoryStore) GetBuild(ctx context.Context, id string) (*contracts.BuildRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.builds[id]
	if !ok {
		return nil, ErrNotFound{BuildID: id}
	}
	return &rec, nil
}

// ListRecent returns up to limit records, newest first.
func (s *InMemoryStore) ListRecent(ctx context.Context, limit int) ([]contracts.BuildRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := make([]contracts.BuildRecord, 0, len(s.builds))
	for _, rec := range s.builds {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].StartedAt.After(recs[j].StartedAt)
	})

	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
