package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/autovagas/autovagas/internal/core"
	"github.com/autovagas/autovagas/internal/history"
)

type appliedHistoryFilter struct {
	deps   *AppliedHistoryDeps
	ignore bool
}

type AppliedHistoryDeps struct {
	History history.Store
	Logger  *zap.Logger
}

type AppliedHistoryConfig struct {
	// Ignore keeps already-applied listings in the list. Debug use only;
	// the executor still refuses to double-apply.
	Ignore bool
}

// NewAppliedHistory creates a filter that removes listings already
// applied to in a previous cycle.
func NewAppliedHistory(cfg *AppliedHistoryConfig, deps *AppliedHistoryDeps) Filter {
	ignore := false
	if cfg != nil {
		ignore = cfg.Ignore
	}

	return &appliedHistoryFilter{
		deps:   deps,
		ignore: ignore,
	}
}

func (f *appliedHistoryFilter) Name() string { return "applied_history" }

func (f *appliedHistoryFilter) Disable(string) {}

func (f *appliedHistoryFilter) IsEnabled() bool { return true }

func (f *appliedHistoryFilter) Validate() error {
	if f.deps == nil || f.deps.History == nil {
		return fmt.Errorf("history store is required")
	}

	if f.deps.Logger == nil {
		return fmt.Errorf("logger is required")
	}

	return nil
}

func (f *appliedHistoryFilter) Apply(ctx context.Context, jobs []*core.ScoredJob) ([]*core.ScoredJob, Step, error) {
	initial := len(jobs)
	if f.ignore {
		f.deps.Logger.Info("keeping already applied listings", zap.String("reason", "ignore flag is set"))
		return jobs, Step{Initial: initial, Dropped: 0, Left: initial}, nil
	}

	appliedKeys, err := f.deps.History.AppliedKeys(ctx)
	if err != nil {
		return jobs, Step{}, fmt.Errorf("load applied history: %w", err)
	}

	applied := make(map[core.JobKey]struct{}, len(appliedKeys))
	for _, key := range appliedKeys {
		applied[key] = struct{}{}
	}

	var excluded []string
	kept := make([]*core.ScoredJob, 0, initial)
	for _, job := range jobs {
		if _, ok := applied[job.Job.Key()]; ok {
			excluded = append(excluded, job.Job.Key().String())
			continue
		}
		kept = append(kept, job)
	}

	if len(excluded) > 0 {
		f.deps.Logger.Info("excluding already applied listings",
			zap.Strings("excluded_jobs", excluded),
			zap.Int("jobs_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: len(excluded), Left: len(kept)}, nil
}
