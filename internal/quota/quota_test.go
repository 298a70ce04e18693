package quota

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestManager(t *testing.T, store Store, limit int) *Manager {
	t.Helper()
	return NewManager(store, "acct-1", limit, zap.NewNop())
}

func TestQuotaCountsDownWithinDay(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newTestManager(t, NewMemoryStore(), 2)

	assert.Equal(t, 2, m.RemainingToday(ctx))
	assert.True(t, m.CanApply(ctx))

	require.NoError(t, m.RecordApplication(ctx))
	assert.Equal(t, 1, m.RemainingToday(ctx))

	require.NoError(t, m.RecordApplication(ctx))
	assert.Equal(t, 0, m.RemainingToday(ctx))
	assert.False(t, m.CanApply(ctx))

	// Over the limit is refused outright.
	assert.Error(t, m.RecordApplication(ctx))
}

func TestRemainingIsMonotonicWithinDay(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newTestManager(t, NewMemoryStore(), 5)

	previous := m.RemainingToday(ctx)
	for i := 0; i < 5; i++ {
		// Repeated queries alone never increase the remaining count.
		for j := 0; j < 3; j++ {
			assert.Equal(t, previous, m.RemainingToday(ctx))
		}
		require.NoError(t, m.RecordApplication(ctx))
		current := m.RemainingToday(ctx)
		assert.Less(t, current, previous)
		previous = current
	}
}

func TestLazyResetOnNewCalendarDay(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newTestManager(t, NewMemoryStore(), 3)

	today := time.Date(2026, 8, 28, 22, 0, 0, 0, time.Local)
	m.now = func() time.Time { return today }

	require.NoError(t, m.RecordApplication(ctx))
	require.NoError(t, m.RecordApplication(ctx))
	require.Equal(t, 1, m.RemainingToday(ctx))

	// Cross midnight: the counter resets exactly once, no matter how
	// often it is queried.
	m.now = func() time.Time { return today.Add(4 * time.Hour) }
	assert.Equal(t, 3, m.RemainingToday(ctx))
	assert.Equal(t, 3, m.RemainingToday(ctx))

	require.NoError(t, m.RecordApplication(ctx))
	assert.Equal(t, 2, m.RemainingToday(ctx))
}

func TestFileStoreSurvivesRestart(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "quota.json")

	first := newTestManager(t, NewFileStore(path), 4)
	require.NoError(t, first.RecordApplication(ctx))
	require.NoError(t, first.RecordApplication(ctx))

	// A new manager over the same file sees the same counter.
	second := newTestManager(t, NewFileStore(path), 4)
	assert.Equal(t, 2, second.RemainingToday(ctx))
}

func TestFileStoreMissingFileMeansZeroState(t *testing.T) {
	t.Parallel()

	store := NewFileStore(filepath.Join(t.TempDir(), "missing.json"))
	state, err := store.Load(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.Equal(t, 0, state.Count)
}
