// Package filtering narrows the scored listings down to the executable
// set. Filters run sequentially; each reports how many listings it
// dropped so the cycle log shows where candidates went.
package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/autovagas/autovagas/internal/core"
)

// Filter represents a single filtering step applied to scored listings.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate() error
	Apply(ctx context.Context, jobs []*core.ScoredJob) ([]*core.ScoredJob, Step, error)
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

type Filtering struct {
	steps  []Filter
	logger *zap.Logger
}

func New(steps []Filter, logger *zap.Logger) *Filtering {
	return &Filtering{steps: steps, logger: logger}
}

// Run executes the enabled filters in order and returns what is left.
func (f *Filtering) Run(ctx context.Context, jobs []*core.ScoredJob) ([]*core.ScoredJob, error) {
	for _, step := range f.steps {
		if !step.IsEnabled() {
			f.logger.Info("filter disabled", zap.String("name", step.Name()))
			continue
		}

		if err := step.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		next, info, err := step.Apply(ctx, jobs)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		f.logger.Info("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		jobs = next
	}

	return jobs, nil
}
