// Package session owns the adapter instances and their authentication
// state. Login failures mark a platform unusable for the current cycle
// only; the next cycle retries.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/autovagas/autovagas/internal/platform"
)

type adapterState struct {
	adapter       platform.Adapter
	credential    *platform.Credential
	authenticated bool
	lastErr       error
}

// usable reports whether the session can serve requests: authenticated
// and the credential not past its expiry.
func (s *adapterState) usable(now time.Time) bool {
	return s.authenticated && (s.credential == nil || !s.credential.Expired(now))
}

type Manager struct {
	mu     sync.Mutex
	states map[string]*adapterState
	logger *zap.Logger

	// now is swappable so tests can expire credentials.
	now func() time.Time
}

func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		states: make(map[string]*adapterState),
		logger: logger,
		now:    time.Now,
	}
}

// Register adds an adapter with its credential. Registering the same
// platform again replaces the previous entry and resets its state.
func (m *Manager) Register(adapter platform.Adapter, cred *platform.Credential) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[adapter.Platform()] = &adapterState{
		adapter:    adapter,
		credential: cred,
	}
}

func (m *Manager) Platforms() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.states))
	for name := range m.states {
		names = append(names, name)
	}
	return names
}

// Login authenticates a single platform.
func (m *Manager) Login(ctx context.Context, name string) error {
	m.mu.Lock()
	state, ok := m.states[name]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("platform %q is not registered", name)
	}

	err := state.adapter.Login(ctx, state.credential)

	m.mu.Lock()
	state.authenticated = err == nil
	state.lastErr = err
	m.mu.Unlock()

	if err != nil {
		return fmt.Errorf("login to %s: %w", name, err)
	}

	m.logger.Debug("platform authenticated", zap.String("platform", name))
	return nil
}

// LoginAll attempts login on every registered platform that does not
// hold a live session, including platforms whose credential expired
// since the last login. Logins run in parallel; one slow or failing
// platform never blocks the others. The returned map holds the resulting
// authentication state per platform.
func (m *Manager) LoginAll(ctx context.Context) map[string]error {
	now := m.now()

	m.mu.Lock()
	pending := make([]string, 0, len(m.states))
	for name, state := range m.states {
		if !state.usable(now) {
			pending = append(pending, name)
		}
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	var resultMu sync.Mutex
	results := make(map[string]error, len(pending))

	for _, name := range pending {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			err := m.Login(ctx, name)

			resultMu.Lock()
			results[name] = err
			resultMu.Unlock()
		}(name)
	}
	wg.Wait()

	return results
}

func (m *Manager) IsAuthenticated(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.states[name]
	return ok && state.usable(m.now())
}

// MarkUnauthenticated flags a platform whose session visibly expired so
// the next cycle performs a fresh login.
func (m *Manager) MarkUnauthenticated(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if state, ok := m.states[name]; ok {
		state.authenticated = false
	}
}

// Authenticated returns the adapters currently usable for search/apply.
func (m *Manager) Authenticated() []platform.Adapter {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	adapters := make([]platform.Adapter, 0, len(m.states))
	for _, state := range m.states {
		if state.usable(now) {
			adapters = append(adapters, state.adapter)
		}
	}
	return adapters
}

// Adapter returns the adapter for a platform regardless of its state.
func (m *Manager) Adapter(name string) (platform.Adapter, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.states[name]
	if !ok {
		return nil, false
	}
	return state.adapter, true
}

// AllAuthenticated reports whether every registered platform holds a
// live session. Used by the orchestrator to skip redundant login passes.
func (m *Manager) AllAuthenticated() bool {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, state := range m.states {
		if !state.usable(now) {
			return false
		}
	}
	return len(m.states) > 0
}
