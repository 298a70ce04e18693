package executor

import (
	"context"
	"math/rand"
	"time"

	"github.com/autovagas/autovagas/internal/utils"
)

// DelayStrategy paces consecutive applications. The randomized pause is
// a hard requirement of the anti-detection contract, not cosmetics, so
// it is injected rather than hard-coded: production uses RandomDelay,
// tests substitute NoDelay without deleting the contract.
type DelayStrategy interface {
	Wait(ctx context.Context) error
}

// RandomDelay sleeps a uniformly random duration from [Min, Max].
type RandomDelay struct {
	Min time.Duration
	Max time.Duration

	// rnd is swappable for deterministic tests of the bounds.
	rnd func(n int64) int64
}

const (
	defaultMinDelay = 3 * time.Second
	defaultMaxDelay = 8 * time.Second
)

func NewRandomDelay(minDelay, maxDelay time.Duration) *RandomDelay {
	if minDelay <= 0 {
		minDelay = defaultMinDelay
	}
	if maxDelay < minDelay {
		maxDelay = defaultMaxDelay
	}
	if maxDelay < minDelay {
		maxDelay = minDelay
	}

	return &RandomDelay{Min: minDelay, Max: maxDelay, rnd: rand.Int63n}
}

func (d *RandomDelay) Wait(ctx context.Context) error {
	span := int64(d.Max - d.Min)
	pause := d.Min
	if span > 0 {
		pause += time.Duration(d.rnd(span + 1))
	}

	return utils.WaitFor(ctx, pause)
}

// NoDelay skips pacing entirely. Test use only.
type NoDelay struct{}

func (NoDelay) Wait(context.Context) error { return nil }
