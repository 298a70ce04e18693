// Package events fans lifecycle notifications out to any number of
// subscribers without coupling the orchestrator to them.
package events

import (
	"sync"

	"github.com/autovagas/autovagas/internal/core"
)

// Listener receives orchestrator lifecycle events. One method per event
// keeps the contract typed instead of stringly-named.
type Listener interface {
	OnStart()
	OnStop()
	OnJobFound(job *core.Job)
	OnJobAnalyzed(job *core.ScoredJob)
	OnJobApplied(result *core.ApplicationResult)
	OnError(err error)
	OnComplete(results []*core.ApplicationResult)
}

// Bus delivers events to every subscribed listener in subscription order.
// Subscribe may be called at any time. The bus does not serialize
// publishers: concurrent publishes interleave, and listeners needing
// ordering must synchronize themselves.
type Bus struct {
	mu        sync.RWMutex
	listeners []Listener
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Subscribe(l Listener) {
	if l == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

func (b *Bus) snapshot() []Listener {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Listener(nil), b.listeners...)
}

func (b *Bus) PublishStart() {
	for _, l := range b.snapshot() {
		l.OnStart()
	}
}

func (b *Bus) PublishStop() {
	for _, l := range b.snapshot() {
		l.OnStop()
	}
}

func (b *Bus) PublishJobFound(job *core.Job) {
	for _, l := range b.snapshot() {
		l.OnJobFound(job)
	}
}

func (b *Bus) PublishJobAnalyzed(job *core.ScoredJob) {
	for _, l := range b.snapshot() {
		l.OnJobAnalyzed(job)
	}
}

func (b *Bus) PublishJobApplied(result *core.ApplicationResult) {
	for _, l := range b.snapshot() {
		l.OnJobApplied(result)
	}
}

func (b *Bus) PublishError(err error) {
	if err == nil {
		return
	}
	for _, l := range b.snapshot() {
		l.OnError(err)
	}
}

func (b *Bus) PublishComplete(results []*core.ApplicationResult) {
	for _, l := range b.snapshot() {
		l.OnComplete(results)
	}
}

// NoopListener implements Listener with empty methods so subscribers can
// embed it and override only what they care about.
type NoopListener struct{}

func (NoopListener) OnStart()                                    {}
func (NoopListener) OnStop()                                     {}
func (NoopListener) OnJobFound(*core.Job)                        {}
func (NoopListener) OnJobAnalyzed(*core.ScoredJob)               {}
func (NoopListener) OnJobApplied(*core.ApplicationResult)        {}
func (NoopListener) OnError(error)                               {}
func (NoopListener) OnComplete([]*core.ApplicationResult)        {}
