package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pkt.systems/webchat/schema"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	timer := &fakeTimer{clock: c, at: c.now.Add(d), fn: f}
	c.timers = append(c.timers, timer)
	return timer
}

// Advance moves the clock forward and runs due timers outside the clock lock.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, timer := range c.timers {
		if timer.stopped || timer.fired || timer.at.After(c.now) {
			continue
		}
		timer.fired = true
		due = append(due, timer)
	}
	c.mu.Unlock()
	for _, timer := range due {
		timer.fn()
	}
}

func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, timer := range c.timers {
		if !timer.stopped && !timer.fired {
			count++
		}
	}
	return count
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

type recordingSink struct {
	mu         sync.Mutex
	deliveries []schema.ActionDelivery
	syncs      []schema.QuoteSync
	opens      []schema.OpenRequest
	tools      []schema.ToolsUpdate
	toolbars   []schema.ToolbarSettings
}

func (s *recordingSink) OnActionDeliver(event schema.ActionDelivery) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveries = append(s.deliveries, event)
}

func (s *recordingSink) OnQuoteSync(event schema.QuoteSync) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncs = append(s.syncs, event)
}

func (s *recordingSink) OnConsumerOpen(event schema.OpenRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opens = append(s.opens, event)
}

func (s *recordingSink) OnToolsUpdated(event schema.ToolsUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tools = append(s.tools, event)
}

func (s *recordingSink) OnToolbarSettings(event schema.ToolbarSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toolbars = append(s.toolbars, event)
}

func (s *recordingSink) deliveredIDs() []schema.ActionID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]schema.ActionID, 0, len(s.deliveries))
	for _, d := range s.deliveries {
		out = append(out, d.Action.ID)
	}
	return out
}

func (s *recordingSink) deliveryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.deliveries)
}

func (s *recordingSink) openCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.opens)
}

func (s *recordingSink) lastSync() schema.QuoteSync {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.syncs) == 0 {
		return schema.QuoteSync{}
	}
	return s.syncs[len(s.syncs)-1]
}

type failingStore struct {
	err error
}

func (f failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, nil
}

func (f failingStore) Set(context.Context, string, []byte) error {
	return f.err
}

var errStoreDown = errors.New("store down")

type testEnv struct {
	coord  *Coordinator
	clock  *fakeClock
	sink   *recordingSink
	opener *countingOpener
}

type countingOpener struct {
	mu    sync.Mutex
	calls []schema.OpenRequest
	err   error
}

func (o *countingOpener) OpenConsumer(_ context.Context, req schema.OpenRequest) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, req)
	return o.err
}

func (o *countingOpener) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.calls)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithConfig(t, schema.CoordinatorConfig{})
}

func newTestEnvWithConfig(t *testing.T, cfg schema.CoordinatorConfig) *testEnv {
	t.Helper()
	clock := newFakeClock()
	sink := &recordingSink{}
	opener := &countingOpener{}
	coord, err := NewCoordinator(cfg, Deps{
		Sink:   sink,
		Opener: opener,
		Clock:  clock,
	})
	if err != nil {
		t.Fatalf("new coordinator: %v", err)
	}
	return &testEnv{coord: coord, clock: clock, sink: sink, opener: opener}
}
