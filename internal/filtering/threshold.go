package filtering

import (
	"context"
	"fmt"

	"github.com/autovagas/autovagas/internal/core"
)

type thresholdFilter struct {
	minScore int
}

// NewThreshold creates the filter that keeps only listings scoring at or
// above the configured match threshold.
func NewThreshold(minScore int) Filter {
	return &thresholdFilter{minScore: minScore}
}

func (f *thresholdFilter) Name() string { return "match_threshold" }

func (f *thresholdFilter) Disable(string) {}

func (f *thresholdFilter) IsEnabled() bool { return true }

func (f *thresholdFilter) Validate() error {
	if f.minScore < 0 || f.minScore > 100 {
		return fmt.Errorf("match threshold must be within [0,100], got %d", f.minScore)
	}
	return nil
}

func (f *thresholdFilter) Apply(_ context.Context, jobs []*core.ScoredJob) ([]*core.ScoredJob, Step, error) {
	initial := len(jobs)

	kept := make([]*core.ScoredJob, 0, initial)
	for _, job := range jobs {
		if job.Score >= f.minScore {
			kept = append(kept, job)
		}
	}

	return kept, Step{Initial: initial, Dropped: initial - len(kept), Left: len(kept)}, nil
}
