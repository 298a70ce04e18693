package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

type fakeAdapter struct {
	mu       sync.Mutex
	name     string
	loginErr error
	jobs     []*core.Job
	applied  []string
	onApply  func()
}

func (f *fakeAdapter) Platform() string { return f.name }

func (f *fakeAdapter) Login(context.Context, *platform.Credential) error { return f.loginErr }

func (f *fakeAdapter) Search(context.Context, *core.JobSearchParams) ([]*core.Job, error) {
	return f.jobs, nil
}

func (f *fakeAdapter) Apply(_ context.Context, job *core.Job, _ *core.CandidateProfile, _ string) (*core.ApplicationResult, error) {
	f.mu.Lock()
	f.applied = append(f.applied, job.ExternalID)
	hook := f.onApply
	f.mu.Unlock()

	if hook != nil {
		hook()
	}

	return &core.ApplicationResult{
		Job:       job,
		Platform:  f.name,
		Success:   true,
		Timestamp: time.Now(),
	}, nil
}

func (f *fakeAdapter) ApplicationStatus(context.Context, string) (string, error) {
	return "viewed", nil
}

func (f *fakeAdapter) appliedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.applied...)
}

// stuckAdapter hangs in Search until the cycle gives up on it.
type stuckAdapter struct {
	fakeAdapter
	searches atomic.Int32
}

func (s *stuckAdapter) Search(ctx context.Context, _ *core.JobSearchParams) ([]*core.Job, error) {
	s.searches.Add(1)
	<-ctx.Done()
	return nil, ctx.Err()
}

// scores by external id; unknown ids score zero.
type stubScorer struct {
	scores map[string]int
}

func (s stubScorer) Score(job *core.Job, _ *core.CandidateProfile) *core.ScoredJob {
	return &core.ScoredJob{Job: job, Score: s.scores[job.ExternalID]}
}

type recordingListener struct {
	events.NoopListener

	mu       sync.Mutex
	errs     []error
	applied  []*core.ApplicationResult
	complete int
	stopped  int
}

func (r *recordingListener) OnError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recordingListener) OnJobApplied(result *core.ApplicationResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applied = append(r.applied, result)
}

func (r *recordingListener) OnComplete([]*core.ApplicationResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.complete++
}

func (r *recordingListener) OnStop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped++
}

func (r *recordingListener) completeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.complete
}

func job(platformName, id string) *core.Job {
	return &core.Job{
		Platform:    platformName,
		ExternalID:  id,
		Title:       "Backend Developer",
		Company:     "Acme",
		RetrievedAt: time.Now(),
	}
}

type fixture struct {
	orch     *Orchestrator
	listener *recordingListener
	quota    *quota.Manager
	history  *history.MemoryStore
	sessions *session.Manager
}

func newFixture(t *testing.T, scorer Scorer, dailyLimit int, adapters ...*fakeAdapter) *fixture {
	t.Helper()

	logger := zap.NewNop()
	sessions := session.NewManager(logger)
	credentials := make(map[string]*platform.Credential)
	for _, a := range adapters {
		cred := &platform.Credential{Platform: a.name, AccessToken: "token"}
		credentials[a.name] = cred
		sessions.Register(a, cred)
	}

	quotaManager := quota.NewManager(quota.NewMemoryStore(), "acct-1", dailyLimit, logger)
	historyStore := history.NewMemoryStore()

	exec := executor.New(
		executor.Config{DefaultMessage: "hello", MaxAttempts: 1},
		executor.Deps{
			Sessions: sessions,
			Quota:    quotaManager,
			History:  historyStore,
			Delay:    executor.NoDelay{},
			Logger:   logger,
		},
	)

	listener := &recordingListener{}
	bus := events.NewBus()
	bus.Subscribe(listener)

	orch := New(Deps{
		Sessions:   sessions,
		Aggregator: aggregate.New(sessions, time.Second, logger),
		Scorer:     scorer,
		Quota:      quotaManager,
		Executor:   exec,
		History:    historyStore,
		Bus:        bus,
		Logger:     logger,
	})

	require.NoError(t, orch.Configure(&Config{
		Credentials:           credentials,
		Search:                &core.JobSearchParams{},
		MatchThreshold:        70,
		MaxApplicationsPerDay: dailyLimit,
		RunInterval:           time.Hour,
		CycleTimeout:          time.Minute,
	}))

	return &fixture{
		orch:     orch,
		listener: listener,
		quota:    quotaManager,
		history:  historyStore,
		sessions: sessions,
	}
}

func TestActivateWithoutConfigureFails(t *testing.T) {
	t.Parallel()

	orch := New(Deps{Bus: events.NewBus(), Logger: zap.NewNop()})
	err := orch.Activate(context.Background(), &core.CandidateProfile{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestConfigureValidation(t *testing.T) {
	t.Parallel()

	orch := New(Deps{Bus: events.NewBus(), Logger: zap.NewNop()})

	assert.Error(t, orch.Configure(nil))
	assert.Error(t, orch.Configure(&Config{}))
	assert.Error(t, orch.Configure(&Config{
		Credentials:           map[string]*platform.Credential{"infojobs": {}},
		Search:                &core.JobSearchParams{},
		MatchThreshold:        150,
		MaxApplicationsPerDay: 5,
	}))
}

func TestQuotaCapsApplicationsInScoreOrder(t *testing.T) {
	t.Parallel()

	// Three eligible listings scored [95, 80, 60] over threshold 70
	// with a daily limit of 2: exactly 95 and 80 are applied. 60 falls
	// to the threshold before quota is even consulted.
	adapter := &fakeAdapter{
		name: "infojobs",
		jobs: []*core.Job{job("infojobs", "b-80"), job("infojobs", "a-95"), job("infojobs", "c-60")},
	}
	scorer := stubScorer{scores: map[string]int{"a-95": 95, "b-80": 80, "c-60": 60}}

	f := newFixture(t, scorer, 2, adapter)
	require.NoError(t, f.orch.Activate(context.Background(), &core.CandidateProfile{}))
	defer f.orch.Deactivate()

	assert.Equal(t, []string{"a-95", "b-80"}, adapter.appliedIDs())
	assert.Equal(t, 0, f.quota.RemainingToday(context.Background()))
	assert.Len(t, f.listener.applied, 2)
}

func TestFailedLoginIsIsolated(t *testing.T) {
	t.Parallel()

	// linkedin login fails, infojobs succeeds: only infojobs jobs flow
	// through, one error event is emitted, the cycle completes normally.
	linkedin := &fakeAdapter{name: "linkedin", loginErr: errors.New("blocked"), jobs: []*core.Job{job("linkedin", "x")}}
	infojobs := &fakeAdapter{name: "infojobs", jobs: []*core.Job{job("infojobs", "1")}}
	scorer := stubScorer{scores: map[string]int{"1": 90, "x": 90}}

	f := newFixture(t, scorer, 5, linkedin, infojobs)
	require.NoError(t, f.orch.Activate(context.Background(), &core.CandidateProfile{}))
	defer f.orch.Deactivate()

	assert.Equal(t, []string{"1"}, infojobs.appliedIDs())
	assert.Empty(t, linkedin.appliedIDs())
	require.Len(t, f.listener.errs, 1)
	assert.Contains(t, f.listener.errs[0].Error(), "linkedin")
	assert.Equal(t, 1, f.listener.complete)
}

func TestCycleTimeoutAbortsOnlyThatCycle(t *testing.T) {
	t.Parallel()

	// A search that never returns must be cut off by the cycle timeout,
	// and the next scheduled cycle must still fire.
	logger := zap.NewNop()
	adapter := &stuckAdapter{fakeAdapter: fakeAdapter{name: "infojobs"}}
	credential := &platform.Credential{Platform: "infojobs", AccessToken: "token"}

	sessions := session.NewManager(logger)
	sessions.Register(adapter, credential)

	quotaManager := quota.NewManager(quota.NewMemoryStore(), "acct-1", 5, logger)
	historyStore := history.NewMemoryStore()

	exec := executor.New(
		executor.Config{MaxAttempts: 1},
		executor.Deps{
			Sessions: sessions,
			Quota:    quotaManager,
			History:  historyStore,
			Delay:    executor.NoDelay{},
			Logger:   logger,
		},
	)

	listener := &recordingListener{}
	bus := events.NewBus()
	bus.Subscribe(listener)

	orch := New(Deps{
		Sessions: sessions,
		// Per-adapter budget far above the cycle timeout, so only the
		// cycle timeout can release the stuck search.
		Aggregator: aggregate.New(sessions, time.Minute, logger),
		Scorer:     stubScorer{},
		Quota:      quotaManager,
		Executor:   exec,
		History:    historyStore,
		Bus:        bus,
		Logger:     logger,
	})

	require.NoError(t, orch.Configure(&Config{
		Credentials:           map[string]*platform.Credential{"infojobs": credential},
		Search:                &core.JobSearchParams{},
		MatchThreshold:        70,
		MaxApplicationsPerDay: 5,
		RunInterval:           time.Second,
		CycleTimeout:          100 * time.Millisecond,
	}))

	start := time.Now()
	require.NoError(t, orch.Activate(context.Background(), &core.CandidateProfile{}))
	defer orch.Deactivate()

	// The inline first cycle wound down on the timeout, not on the
	// minute-long adapter budget.
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.GreaterOrEqual(t, listener.completeCount(), 1)
	assert.Equal(t, int32(1), adapter.searches.Load())

	// Cycle N+1 still runs on schedule.
	assert.Eventually(t, func() bool {
		return adapter.searches.Load() >= 2 && listener.completeCount() >= 2
	}, 5*time.Second, 50*time.Millisecond)
}

func TestDeactivateMidCycleFinishesInFlightApply(t *testing.T) {
	t.Parallel()

	adapter := &fakeAdapter{
		name: "infojobs",
		jobs: []*core.Job{job("infojobs", "1"), job("infojobs", "2")},
	}
	scorer := stubScorer{scores: map[string]int{"1": 95, "2": 90}}

	f := newFixture(t, scorer, 10, adapter)

	// Deactivate lands while the first application is being submitted.
	adapter.onApply = func() {
		adapter.onApply = nil
		f.orch.Deactivate()
	}

	require.NoError(t, f.orch.Activate(context.Background(), &core.CandidateProfile{}))

	// The in-flight apply completed and was recorded; no further ones
	// started; the orchestrator wound down to idle.
	assert.Equal(t, []string{"1"}, adapter.appliedIDs())
	assert.Len(t, f.listener.applied, 1)
	assert.Equal(t, StateIdle, f.orch.State())
	assert.Equal(t, 1, f.listener.stopped)
}

func TestNoDoubleApplyAcrossCycles(t *testing.T) {
	t.Parallel()

	adapter := &fakeAdapter{name: "infojobs", jobs: []*core.Job{job("infojobs", "1")}}
	scorer := stubScorer{scores: map[string]int{"1": 95}}

	f := newFixture(t, scorer, 10, adapter)

	require.NoError(t, f.orch.Activate(context.Background(), &core.CandidateProfile{}))
	f.orch.Deactivate()
	require.Equal(t, []string{"1"}, adapter.appliedIDs())

	// Second activation runs another full cycle; the listing is in the
	// applied history now and must not reach the adapter again.
	require.NoError(t, f.orch.Activate(context.Background(), &core.CandidateProfile{}))
	f.orch.Deactivate()

	assert.Equal(t, []string{"1"}, adapter.appliedIDs())
}

func TestActivateIsIdempotent(t *testing.T) {
	t.Parallel()

	adapter := &fakeAdapter{name: "infojobs"}
	f := newFixture(t, stubScorer{}, 5, adapter)

	profile := &core.CandidateProfile{}
	require.NoError(t, f.orch.Activate(context.Background(), profile))
	defer f.orch.Deactivate()

	assert.Equal(t, StateActive, f.orch.State())
	assert.NoError(t, f.orch.Activate(context.Background(), profile))
	assert.NoError(t, f.orch.Configure(&Config{}))
}

func TestDeactivateWhileIdleIsNoop(t *testing.T) {
	t.Parallel()

	f := newFixture(t, stubScorer{}, 5, &fakeAdapter{name: "infojobs"})
	f.orch.Deactivate()
	assert.Equal(t, StateIdle, f.orch.State())
	assert.Zero(t, f.listener.stopped)
}

func TestCheckApplicationStatus(t *testing.T) {
	t.Parallel()

	f := newFixture(t, stubScorer{}, 5, &fakeAdapter{name: "infojobs"})

	status, err := f.orch.CheckApplicationStatus(context.Background(), "infojobs", "app-1")
	require.NoError(t, err)
	assert.Equal(t, "viewed", status)

	_, err = f.orch.CheckApplicationStatus(context.Background(), "nope", "app-1")
	assert.Error(t, err)
}
