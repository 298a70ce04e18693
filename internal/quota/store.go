package quota

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

// MemoryStore keeps quota state in memory. Used in tests and by callers
// that accept losing the counter on restart.
type MemoryStore struct {
	mu     sync.Mutex
	states map[string]State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]State)}
}

func (s *MemoryStore) Load(_ context.Context, accountID string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[accountID], nil
}

func (s *MemoryStore) Save(_ context.Context, state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.AccountID] = state
	return nil
}

// FileStore persists quota state as a JSON file next to the binary, the
// right fit for single-account CLI installs.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(_ context.Context, accountID string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	states, err := s.read()
	if err != nil {
		return State{}, err
	}
	return states[accountID], nil
}

func (s *FileStore) Save(_ context.Context, state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	states, err := s.read()
	if err != nil {
		return err
	}
	states[state.AccountID] = state

	data, err := json.MarshalIndent(states, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write quota file: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func (s *FileStore) read() (map[string]State, error) {
	states := make(map[string]State)

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return states, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read quota file: %w", err)
	}
	if len(data) == 0 {
		return states, nil
	}

	if err := json.Unmarshal(data, &states); err != nil {
		return nil, fmt.Errorf("parse quota file %q: %w", s.path, err)
	}
	return states, nil
}
