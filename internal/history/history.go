// Package history records every application outcome and answers the one
// question the orchestrator keeps asking: has this listing been applied
// to already? A listing with a successful result must never be applied
// to again, across restarts included.
package history

import (
	"context"
	"sync"

	"github.com/autovagas/autovagas/internal/core"
)

// Store is the applied-job history. Record is append-only.
type Store interface {
	// Applied reports whether a successful application exists for key.
	Applied(ctx context.Context, key core.JobKey) (bool, error)
	// AppliedKeys returns every key with a successful application.
	AppliedKeys(ctx context.Context) ([]core.JobKey, error)
	Record(ctx context.Context, result *core.ApplicationResult) error
}

// MemoryStore keeps history in memory, for tests and throwaway runs.
type MemoryStore struct {
	mu      sync.Mutex
	applied map[core.JobKey]struct{}
	results []*core.ApplicationResult
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{applied: make(map[core.JobKey]struct{})}
}

func (s *MemoryStore) Applied(_ context.Context, key core.JobKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.applied[key]
	return ok, nil
}

func (s *MemoryStore) AppliedKeys(_ context.Context) ([]core.JobKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]core.JobKey, 0, len(s.applied))
	for key := range s.applied {
		keys = append(keys, key)
	}
	return keys, nil
}

func (s *MemoryStore) Record(_ context.Context, result *core.ApplicationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results = append(s.results, result)
	if result.Success {
		s.applied[result.Job.Key()] = struct{}{}
	}
	return nil
}

// Results returns a copy of everything recorded so far.
func (s *MemoryStore) Results() []*core.ApplicationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*core.ApplicationResult(nil), s.results...)
}
