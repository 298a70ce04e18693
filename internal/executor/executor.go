// Package executor submits a single application through the listing's
// owning adapter, with human pacing and bounded retries. One listing's
// failure never aborts the rest of the cycle.
package executor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/autovagas/autovagas/internal/core"
	"github.com/autovagas/autovagas/internal/history"
	"github.com/autovagas/autovagas/internal/platform"
	"github.com/autovagas/autovagas/internal/quota"
	"github.com/autovagas/autovagas/internal/session"
	"github.com/autovagas/autovagas/internal/utils"
)

const (
	defaultMaxAttempts = 3
	defaultBackoffBase = 2 * time.Second
)

// MessageWriter drafts the apply message for one listing. Optional; a
// nil writer means the static default message is used.
type MessageWriter interface {
	WriteMessage(ctx context.Context, job *core.Job, profile *core.CandidateProfile) (string, error)
}

type Config struct {
	// DefaultMessage accompanies applications when no writer is set or
	// the writer fails.
	DefaultMessage string
	MaxAttempts    int
	BackoffBase    time.Duration
}

type Deps struct {
	Sessions *session.Manager
	Quota    *quota.Manager
	History  history.Store
	Delay    DelayStrategy
	Writer   MessageWriter
	Logger   *zap.Logger
}

type Executor struct {
	cfg  Config
	deps Deps
}

const fallbackMessage = "Hello! I would like to apply for this position."

func New(cfg Config, deps Deps) *Executor {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = defaultBackoffBase
	}
	if deps.Delay == nil {
		deps.Delay = NewRandomDelay(0, 0)
	}

	return &Executor{cfg: cfg, deps: deps}
}

// Apply submits one application. It waits the mandatory randomized
// pause first, then retries transient adapter failures with exponential
// backoff. The returned error is non-nil only when the context was
// cancelled; adapter failures are reported inside the failed result.
func (e *Executor) Apply(ctx context.Context, job *core.Job, profile *core.CandidateProfile) (*core.ApplicationResult, error) {
	key := job.Key()

	applied, err := e.deps.History.Applied(ctx, key)
	if err != nil {
		return e.failed(ctx, job, fmt.Errorf("check applied history: %w", err)), nil
	}
	if applied {
		// Last line of defense for the no-double-apply invariant; the
		// filter chain should have dropped it already.
		return e.failed(ctx, job, fmt.Errorf("already applied to %s", key)), nil
	}

	adapter, ok := e.deps.Sessions.Adapter(key.Platform)
	if !ok {
		return e.failed(ctx, job, fmt.Errorf("no adapter for platform %q", key.Platform)), nil
	}

	if err := e.deps.Delay.Wait(ctx); err != nil {
		return nil, err
	}

	message := e.applyMessage(ctx, job, profile)

	var result *core.ApplicationResult
	var lastErr error
	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		result, lastErr = adapter.Apply(ctx, job, profile, message)
		if lastErr == nil {
			break
		}

		if platform.IsAuthError(lastErr) {
			// Retrying without a fresh login is pointless.
			e.deps.Sessions.MarkUnauthenticated(key.Platform)
			break
		}

		if attempt == e.cfg.MaxAttempts {
			break
		}

		backoff := e.cfg.BackoffBase * (1 << (attempt - 1))
		e.deps.Logger.Warn("application attempt failed, retrying",
			zap.String("job", key.String()),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(lastErr),
		)

		if err := utils.WaitFor(ctx, backoff); err != nil {
			return nil, err
		}
	}

	if lastErr != nil {
		return e.failed(ctx, job, lastErr), nil
	}

	// Quota is consumed only by a confirmed success.
	if err := e.deps.Quota.RecordApplication(ctx); err != nil {
		e.deps.Logger.Error("recording quota after successful application", zap.Error(err))
	}
	if err := e.deps.History.Record(ctx, result); err != nil {
		e.deps.Logger.Error("recording application history", zap.Error(err))
	}

	return result, nil
}

func (e *Executor) applyMessage(ctx context.Context, job *core.Job, profile *core.CandidateProfile) string {
	if e.deps.Writer != nil {
		message, err := e.deps.Writer.WriteMessage(ctx, job, profile)
		if err == nil && message != "" {
			return message
		}
		if err != nil {
			e.deps.Logger.Warn("message writer failed, using default message",
				zap.String("job", job.Key().String()),
				zap.Error(err),
			)
		}
	}

	if e.cfg.DefaultMessage != "" {
		return e.cfg.DefaultMessage
	}

	e.deps.Logger.Warn("falling back to built-in apply message",
		zap.String("job", job.Key().String()),
		zap.String("hint", "set apply.message in the configuration file"),
	)
	return fallbackMessage
}

func (e *Executor) failed(ctx context.Context, job *core.Job, cause error) *core.ApplicationResult {
	result := &core.ApplicationResult{
		Job:       job,
		Platform:  job.Platform,
		Success:   false,
		Error:     cause.Error(),
		Timestamp: time.Now(),
	}

	if err := e.deps.History.Record(ctx, result); err != nil {
		e.deps.Logger.Error("recording failed application", zap.Error(err))
	}

	return result
}
