package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/autovagas/autovagas/internal/core"
)

type recordingListener struct {
	NoopListener
	found   []*core.Job
	applied []*core.ApplicationResult
	errs    []error
	started int
	stopped int
}

func (r *recordingListener) OnStart() { r.started++ }

func (r *recordingListener) OnStop() { r.stopped++ }

func (r *recordingListener) OnJobFound(job *core.Job) { r.found = append(r.found, job) }

func (r *recordingListener) OnJobApplied(result *core.ApplicationResult) {
	r.applied = append(r.applied, result)
}

func (r *recordingListener) OnError(err error) { r.errs = append(r.errs, err) }

func TestBusFansOutToEverySubscriber(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	first := &recordingListener{}
	second := &recordingListener{}
	bus.Subscribe(first)
	bus.Subscribe(second)

	bus.PublishStart()
	bus.PublishJobFound(&core.Job{Platform: "infojobs", ExternalID: "1"})
	bus.PublishJobApplied(&core.ApplicationResult{Platform: "infojobs", Success: true})
	bus.PublishStop()

	for _, l := range []*recordingListener{first, second} {
		assert.Equal(t, 1, l.started)
		assert.Equal(t, 1, l.stopped)
		assert.Len(t, l.found, 1)
		assert.Len(t, l.applied, 1)
	}
}

func TestBusIgnoresNilSubscribersAndNilErrors(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	bus.Subscribe(nil)

	listener := &recordingListener{}
	bus.Subscribe(listener)

	bus.PublishError(nil)
	assert.Empty(t, listener.errs)

	bus.PublishError(errors.New("boom"))
	assert.Len(t, listener.errs, 1)
}

func TestNoopListenerSatisfiesInterface(t *testing.T) {
	t.Parallel()

	var _ Listener = NoopListener{}
}
