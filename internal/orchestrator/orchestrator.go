// Package orchestrator runs the auto-apply control loop: aggregate,
// score, filter, and apply on a fixed interval until deactivated. The
// loop never throws; every failure degrades to fewer jobs processed in
// that cycle plus an error event.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/autovagas/autovagas/internal/aggregate"
	"github.com/autovagas/autovagas/internal/core"
	"github.com/autovagas/autovagas/internal/events"
	"github.com/autovagas/autovagas/internal/executor"
	"github.com/autovagas/autovagas/internal/history"
	"github.com/autovagas/autovagas/internal/platform"
	"github.com/autovagas/autovagas/internal/quota"
	"github.com/autovagas/autovagas/internal/session"
)

// State is the orchestrator lifecycle state.
type State int

const (
	StateIdle State = iota
	StateConfiguring
	StateActive
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConfiguring:
		return "configuring"
	case StateActive:
		return "active"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// ErrNotConfigured is returned by Activate when Configure has not been
// called with a valid configuration.
var ErrNotConfigured = errors.New("orchestrator is not configured")

const (
	defaultRunInterval  = 1 * time.Hour
	defaultCycleTimeout = 10 * time.Minute
)

// Config is everything one account's automation needs.
type Config struct {
	Credentials           map[string]*platform.Credential
	Search                *core.JobSearchParams
	MatchThreshold        int
	MaxApplicationsPerDay int
	RunInterval           time.Duration
	// CycleTimeout bounds one full cycle so a stuck adapter cannot
	// block all subsequent cycles. Exceeding it aborts the remainder of
	// that cycle only.
	CycleTimeout      time.Duration
	ExcludedEmployers []string
	IgnoreApplied     bool
}

func (c *Config) validate() error {
	if len(c.Credentials) == 0 {
		return fmt.Errorf("at least one platform credential is required")
	}
	for name, cred := range c.Credentials {
		if cred == nil {
			return fmt.Errorf("credential for platform %q is empty", name)
		}
	}
	if c.Search == nil {
		return fmt.Errorf("search parameters are required")
	}
	if c.MatchThreshold < 0 || c.MatchThreshold > 100 {
		return fmt.Errorf("match threshold must be within [0,100], got %d", c.MatchThreshold)
	}
	if c.MaxApplicationsPerDay <= 0 {
		return fmt.Errorf("max applications per day must be positive, got %d", c.MaxApplicationsPerDay)
	}
	if c.RunInterval <= 0 {
		c.RunInterval = defaultRunInterval
	}
	if c.CycleTimeout <= 0 {
		c.CycleTimeout = defaultCycleTimeout
	}
	return nil
}

// Deps are the collaborators driving one account's automation.
type Deps struct {
	Sessions   *session.Manager
	Aggregator *aggregate.Aggregator
	Scorer     Scorer
	Quota      *quota.Manager
	Executor   Applier
	History    history.Store
	Bus        *events.Bus
	Logger     *zap.Logger
}

// Scorer computes the compatibility score for one listing.
type Scorer interface {
	Score(job *core.Job, profile *core.CandidateProfile) *core.ScoredJob
}

// Applier submits one application. Satisfied by executor.Executor.
type Applier interface {
	Apply(ctx context.Context, job *core.Job, profile *core.CandidateProfile) (*core.ApplicationResult, error)
}

var _ Applier = (*executor.Executor)(nil)

type Orchestrator struct {
	mu      sync.Mutex
	state   State
	cfg     *Config
	profile *core.CandidateProfile
	cron    *cron.Cron

	// cycleMu serializes cycles: a slow cycle must not overlap the next
	// scheduled one.
	cycleMu sync.Mutex

	deps Deps
}

func New(deps Deps) *Orchestrator {
	return &Orchestrator{
		state: StateIdle,
		deps:  deps,
	}
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Configure validates and stores the configuration. It may be called
// again before activation to replace the config. Configuring while
// Active is a success no-op, keeping start idempotent.
func (o *Orchestrator) Configure(cfg *Config) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == StateActive {
		o.deps.Logger.Debug("configure ignored, already active")
		return nil
	}
	if o.state == StateStopping {
		return fmt.Errorf("cannot configure while stopping")
	}

	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	o.cfg = cfg
	o.state = StateConfiguring
	return nil
}

// Activate transitions to Active, runs one full cycle synchronously so
// the caller observes first results fast, then schedules subsequent
// cycles at the configured interval. Activating while Active is a
// success no-op.
func (o *Orchestrator) Activate(ctx context.Context, profile *core.CandidateProfile) error {
	o.mu.Lock()
	if o.state == StateActive {
		o.mu.Unlock()
		o.deps.Logger.Debug("activate ignored, already active")
		return nil
	}
	if o.cfg == nil {
		o.mu.Unlock()
		return ErrNotConfigured
	}
	if profile == nil {
		o.mu.Unlock()
		return fmt.Errorf("candidate profile is required")
	}

	o.profile = profile
	o.state = StateActive
	o.cron = cron.New()
	o.mu.Unlock()

	o.deps.Bus.PublishStart()

	// First cycle runs inline.
	o.runCycle(ctx)

	// A deactivate during the first cycle means nothing left to schedule.
	if o.State() != StateActive {
		return nil
	}

	spec := fmt.Sprintf("@every %s", o.cfg.RunInterval)
	if _, err := o.cron.AddFunc(spec, func() {
		if o.State() != StateActive {
			return
		}
		o.runCycle(ctx)
	}); err != nil {
		o.mu.Lock()
		o.state = StateIdle
		o.mu.Unlock()
		return fmt.Errorf("schedule cycles: %w", err)
	}

	o.cron.Start()
	o.deps.Logger.Info("cycle schedule started", zap.Duration("interval", o.cfg.RunInterval))

	return nil
}

// Deactivate cancels the pending schedule and waits for an in-flight
// cycle to wind down. It never interrupts an application already being
// submitted; the cycle loop stops before the next one instead.
// Deactivating while Idle is a no-op.
func (o *Orchestrator) Deactivate() {
	o.mu.Lock()
	if o.state != StateActive {
		o.mu.Unlock()
		o.deps.Logger.Debug("deactivate ignored", zap.String("state", o.state.String()))
		return
	}
	o.state = StateStopping
	c := o.cron
	o.mu.Unlock()

	if c != nil {
		// Stop fires no further cycles and waits for running ones.
		<-c.Stop().Done()
	}

	o.mu.Lock()
	o.state = StateIdle
	o.cron = nil
	o.mu.Unlock()

	o.deps.Bus.PublishStop()
}

// CheckApplicationStatus resolves the board-side status of a submitted
// application.
func (o *Orchestrator) CheckApplicationStatus(ctx context.Context, platformName, applicationID string) (string, error) {
	adapter, ok := o.deps.Sessions.Adapter(platformName)
	if !ok {
		return "", fmt.Errorf("platform %q is not registered", platformName)
	}

	status, err := adapter.ApplicationStatus(ctx, applicationID)
	if err != nil {
		if platform.IsAuthError(err) {
			o.deps.Sessions.MarkUnauthenticated(platformName)
		}
		return "", fmt.Errorf("check application status on %s: %w", platformName, err)
	}

	return status, nil
}
