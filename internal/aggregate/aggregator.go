// Package aggregate fans a search out to every authenticated platform
// and merges the results into one deduplicated list.
package aggregate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/autovagas/autovagas/internal/core"
	"github.com/autovagas/autovagas/internal/platform"
	"github.com/autovagas/autovagas/internal/session"
)

const defaultAdapterTimeout = 30 * time.Second

type Aggregator struct {
	sessions       *session.Manager
	adapterTimeout time.Duration
	logger         *zap.Logger
}

func New(sessions *session.Manager, adapterTimeout time.Duration, logger *zap.Logger) *Aggregator {
	if adapterTimeout <= 0 {
		adapterTimeout = defaultAdapterTimeout
	}
	return &Aggregator{
		sessions:       sessions,
		adapterTimeout: adapterTimeout,
		logger:         logger,
	}
}

type searchOutcome struct {
	platform string
	jobs     []*core.Job
	err      error
}

// SearchAll queries every authenticated adapter concurrently, each under
// its own timeout. A platform that fails or times out contributes zero
// jobs and an entry in the returned error slice; it never fails the
// aggregate. The order of the returned jobs is unspecified.
func (a *Aggregator) SearchAll(ctx context.Context, params *core.JobSearchParams) (*core.Jobs, []error) {
	adapters := a.sessions.Authenticated()

	outcomes := make(chan searchOutcome, len(adapters))
	var wg sync.WaitGroup

	for _, adapter := range adapters {
		wg.Add(1)
		go func(adapter platform.Adapter) {
			defer wg.Done()

			searchCtx, cancel := context.WithTimeout(ctx, a.adapterTimeout)
			defer cancel()

			jobs, err := adapter.Search(searchCtx, params)
			outcomes <- searchOutcome{
				platform: adapter.Platform(),
				jobs:     jobs,
				err:      err,
			}
		}(adapter)
	}

	wg.Wait()
	close(outcomes)

	merged := &core.Jobs{}
	var errs []error
	for outcome := range outcomes {
		if outcome.err != nil {
			if platform.IsAuthError(outcome.err) {
				a.sessions.MarkUnauthenticated(outcome.platform)
			}
			errs = append(errs, fmt.Errorf("search on %s: %w", outcome.platform, outcome.err))
			continue
		}

		a.logger.Debug("search results",
			zap.String("platform", outcome.platform),
			zap.Int("count", len(outcome.jobs)),
		)
		merged.Items = append(merged.Items, outcome.jobs...)
	}

	before := merged.Len()
	merged.Dedup()
	if dropped := before - merged.Len(); dropped > 0 {
		a.logger.Debug("deduplicated listings", zap.Int("dropped", dropped))
	}

	return merged, errs
}
