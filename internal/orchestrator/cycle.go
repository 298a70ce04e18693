package orchestrator

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/autovagas/autovagas/internal/core"
	"github.com/autovagas/autovagas/internal/filtering"
)

// runCycle performs one aggregate → score → filter → apply pass. It
// recovers from panics so a single bad cycle never kills the schedule.
func (o *Orchestrator) runCycle(ctx context.Context) {
	o.cycleMu.Lock()
	defer o.cycleMu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("cycle aborted: %v", r)
			o.deps.Logger.Error("cycle panicked", zap.Any("panic", r))
			o.deps.Bus.PublishError(err)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, o.cfg.CycleTimeout)
	defer cancel()

	o.deps.Logger.Info("cycle started")

	// Login pass. Skipped while every platform holds a live session;
	// platforms flagged unauthenticated last cycle get retried here.
	if !o.deps.Sessions.AllAuthenticated() {
		for name, err := range o.deps.Sessions.LoginAll(ctx) {
			if err != nil {
				o.deps.Bus.PublishError(err)
				continue
			}
			o.deps.Logger.Debug("login ok", zap.String("platform", name))
		}
	}

	jobs, searchErrs := o.deps.Aggregator.SearchAll(ctx, o.cfg.Search)
	for _, err := range searchErrs {
		o.deps.Bus.PublishError(err)
	}

	o.deps.Logger.Info("search finished", zap.Int("jobs", jobs.Len()))

	scored := make([]*core.ScoredJob, 0, jobs.Len())
	for _, job := range jobs.Items {
		o.deps.Bus.PublishJobFound(job)

		sj := o.deps.Scorer.Score(job, o.profile)
		o.deps.Bus.PublishJobAnalyzed(sj)
		scored = append(scored, sj)
	}

	executable, err := o.filters().Run(ctx, scored)
	if err != nil {
		o.deps.Bus.PublishError(fmt.Errorf("filtering: %w", err))
		o.deps.Bus.PublishComplete(nil)
		return
	}

	// Highest score first. Key as tiebreak keeps the order stable
	// across cycles.
	sort.Slice(executable, func(i, j int) bool {
		if executable[i].Score != executable[j].Score {
			return executable[i].Score > executable[j].Score
		}
		return executable[i].Job.Key().String() < executable[j].Job.Key().String()
	})

	if remaining := o.deps.Quota.RemainingToday(ctx); len(executable) > remaining {
		o.deps.Logger.Info("capping executable set to remaining quota",
			zap.Int("eligible", len(executable)),
			zap.Int("remaining_quota", remaining),
		)
		executable = executable[:remaining]
	}

	results := o.applyAll(ctx, executable)

	o.deps.Bus.PublishComplete(results)
	o.deps.Logger.Info("cycle finished", zap.Int("applications", len(results)))
}

// applyAll submits applications strictly sequentially, highest score
// first. Sequential on purpose: pacing, not throughput, is the
// constraint here.
func (o *Orchestrator) applyAll(ctx context.Context, executable []*core.ScoredJob) []*core.ApplicationResult {
	var results []*core.ApplicationResult

	for _, sj := range executable {
		// A deactivate mid-cycle lets the in-flight apply finish but
		// starts no further ones.
		if o.State() != StateActive {
			o.deps.Logger.Info("stopping apply loop", zap.String("state", o.State().String()))
			break
		}

		if !o.deps.Quota.CanApply(ctx) {
			// Normal terminal condition, not an error.
			o.deps.Logger.Info("daily quota reached, skipping remaining jobs",
				zap.Int("skipped", len(executable)-len(results)),
			)
			break
		}

		result, err := o.deps.Executor.Apply(ctx, sj.Job, o.profile)
		if err != nil {
			// Only context cancellation surfaces as an error.
			o.deps.Bus.PublishError(fmt.Errorf("apply aborted: %w", err))
			break
		}

		results = append(results, result)
		o.deps.Bus.PublishJobApplied(result)

		if !result.Success {
			o.deps.Bus.PublishError(fmt.Errorf("apply to %s failed: %s", result.Job.Key(), result.Error))
		}
	}

	return results
}

func (o *Orchestrator) filters() *filtering.Filtering {
	steps := []filtering.Filter{
		filtering.NewThreshold(o.cfg.MatchThreshold),
		filtering.NewAppliedHistory(
			&filtering.AppliedHistoryConfig{Ignore: o.cfg.IgnoreApplied},
			&filtering.AppliedHistoryDeps{History: o.deps.History, Logger: o.deps.Logger},
		),
		filtering.NewExcludedEmployers(o.cfg.ExcludedEmployers, o.deps.Logger),
	}

	return filtering.New(steps, o.deps.Logger)
}
