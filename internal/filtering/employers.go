package filtering

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/autovagas/autovagas/internal/core"
)

type employersFilter struct {
	companies []string
	logger    *zap.Logger
}

// NewExcludedEmployers creates a filter that removes listings from
// companies the candidate never wants to apply to.
func NewExcludedEmployers(companies []string, logger *zap.Logger) Filter {
	return &employersFilter{companies: companies, logger: logger}
}

func (f *employersFilter) Name() string { return "excluded_employers" }

func (f *employersFilter) Disable(string) {}

func (f *employersFilter) IsEnabled() bool { return true }

func (f *employersFilter) Validate() error { return nil }

func (f *employersFilter) Apply(_ context.Context, jobs []*core.ScoredJob) ([]*core.ScoredJob, Step, error) {
	initial := len(jobs)
	if len(f.companies) == 0 {
		return jobs, Step{Initial: initial, Dropped: 0, Left: initial}, nil
	}

	banned := make(map[string]struct{}, len(f.companies))
	for _, company := range f.companies {
		banned[strings.ToLower(strings.TrimSpace(company))] = struct{}{}
	}

	var excluded []string
	kept := make([]*core.ScoredJob, 0, initial)
	for _, job := range jobs {
		if _, ok := banned[strings.ToLower(job.Job.Company)]; ok {
			excluded = append(excluded, job.Job.Key().String())
			continue
		}
		kept = append(kept, job)
	}

	if len(excluded) > 0 && f.logger != nil {
		f.logger.Info("excluding listings by employer",
			zap.Strings("excluded_employers", f.companies),
			zap.Strings("excluded_jobs", excluded),
			zap.Int("jobs_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: len(excluded), Left: len(kept)}, nil
}
