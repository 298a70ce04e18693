// Package quota enforces the plan-defined ceiling on automated
// applications per calendar day. The counter survives restarts through
// an injected Store; the reset is lazy so a process that slept across
// midnight still resets correctly on its next call.
package quota

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// State is the persisted quota record for one account.
type State struct {
	AccountID  string    `json:"account_id"`
	DailyLimit int       `json:"daily_limit"`
	Count      int       `json:"count"`
	ResetDate  string    `json:"reset_date"` // local date, YYYY-MM-DD
	LastRunAt  time.Time `json:"last_run_at"`
}

// Store persists quota state. Implementations must tolerate a missing
// record by returning a zero State with no error.
type Store interface {
	Load(ctx context.Context, accountID string) (State, error)
	Save(ctx context.Context, state State) error
}

type Manager struct {
	store      Store
	accountID  string
	dailyLimit int
	logger     *zap.Logger

	// now is swappable so tests can cross day boundaries.
	now func() time.Time
}

func NewManager(store Store, accountID string, dailyLimit int, logger *zap.Logger) *Manager {
	return &Manager{
		store:      store,
		accountID:  accountID,
		dailyLimit: dailyLimit,
		logger:     logger,
		now:        time.Now,
	}
}

func localDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// fresh loads the state and applies the lazy daily reset: any call that
// observes a new local calendar day zeroes the counter first.
func (m *Manager) fresh(ctx context.Context) (State, error) {
	state, err := m.store.Load(ctx, m.accountID)
	if err != nil {
		return State{}, fmt.Errorf("load quota state: %w", err)
	}

	state.AccountID = m.accountID
	state.DailyLimit = m.dailyLimit

	today := localDate(m.now())
	if state.ResetDate != today {
		if state.ResetDate != "" {
			m.logger.Debug("daily quota reset",
				zap.String("previous_date", state.ResetDate),
				zap.Int("previous_count", state.Count),
			)
		}
		state.Count = 0
		state.ResetDate = today
		if err := m.store.Save(ctx, state); err != nil {
			return State{}, fmt.Errorf("save quota state: %w", err)
		}
	}

	return state, nil
}

// CanApply reports whether another application fits today's quota. A
// store failure counts as quota exhausted: better to under-apply than to
// breach the plan ceiling.
func (m *Manager) CanApply(ctx context.Context) bool {
	state, err := m.fresh(ctx)
	if err != nil {
		m.logger.Error("quota check failed, treating as exhausted", zap.Error(err))
		return false
	}
	return state.Count < state.DailyLimit
}

// RecordApplication increments the counter. Callers must invoke it only
// after a confirmed successful submission.
func (m *Manager) RecordApplication(ctx context.Context) error {
	state, err := m.fresh(ctx)
	if err != nil {
		return err
	}

	if state.Count >= state.DailyLimit {
		return fmt.Errorf("daily quota of %d already reached", state.DailyLimit)
	}

	state.Count++
	state.LastRunAt = m.now()
	if err := m.store.Save(ctx, state); err != nil {
		return fmt.Errorf("save quota state: %w", err)
	}

	return nil
}

// RemainingToday returns how many applications the quota still allows.
func (m *Manager) RemainingToday(ctx context.Context) int {
	state, err := m.fresh(ctx)
	if err != nil {
		m.logger.Error("quota check failed, treating as exhausted", zap.Error(err))
		return 0
	}

	remaining := state.DailyLimit - state.Count
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}
