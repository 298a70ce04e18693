package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autovagas/autovagas/internal/core"
)

func result(platform, id string, success bool) *core.ApplicationResult {
	return &core.ApplicationResult{
		Job:       &core.Job{Platform: platform, ExternalID: id},
		Platform:  platform,
		Success:   success,
		Timestamp: time.Now(),
	}
}

func TestOnlySuccessesCountAsApplied(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Record(ctx, result("infojobs", "1", true)))
	require.NoError(t, store.Record(ctx, result("infojobs", "2", false)))

	applied, err := store.Applied(ctx, core.JobKey{Platform: "infojobs", ExternalID: "1"})
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = store.Applied(ctx, core.JobKey{Platform: "infojobs", ExternalID: "2"})
	require.NoError(t, err)
	assert.False(t, applied)

	keys, err := store.AppliedKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "infojobs:1", keys[0].String())

	// Both outcomes are kept as history.
	assert.Len(t, store.Results(), 2)
}
