// Package sched runs one-shot and periodic callbacks from a single monitor
// goroutine.
//
// Digit timeouts, keepalive supervision and store reaping all go through
// a Scheduler so that tests can drive time explicitly with RunDue instead
// of sleeping.
package sched

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/muurk/sccpd/internal/logging"
)

// DefaultTick is the resolution of the monitor loop.
const DefaultTick = time.Second

// Timer is a scheduled callback.
type Timer struct {
	s      *Scheduler
	when   time.Time
	period time.Duration
	fn     func()
	index  int

	cancelled atomic.Bool
	fired     atomic.Bool
}

// Cancel stops the timer. It returns true if this call prevented a pending
// run; cancelling twice or after a one-shot fired returns false.
func (t *Timer) Cancel() bool {
	if t == nil || !t.cancelled.CompareAndSwap(false, true) {
		return false
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.index >= 0 {
		heap.Remove(&t.s.queue, t.index)
	}
	return !t.fired.Load() || t.period > 0
}

// When returns the next due time.
func (t *Timer) When() time.Time {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.when
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces time.Now, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithTick sets the monitor loop resolution.
func WithTick(d time.Duration) Option {
	return func(s *Scheduler) { s.tick = d }
}

// Scheduler keeps timers ordered by due time.
type Scheduler struct {
	mu    sync.Mutex
	queue timerQueue
	now   func() time.Time
	tick  time.Duration
}

// New creates a scheduler. Call Run to start the monitor goroutine.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{now: time.Now, tick: DefaultTick}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the scheduler's clock.
func (s *Scheduler) Now() time.Time { return s.now() }

// After runs fn once, d from now.
func (s *Scheduler) After(d time.Duration, fn func()) *Timer {
	return s.add(d, 0, fn)
}

// Every runs fn every d until cancelled.
func (s *Scheduler) Every(d time.Duration, fn func()) *Timer {
	return s.add(d, d, fn)
}

func (s *Scheduler) add(d, period time.Duration, fn func()) *Timer {
	t := &Timer{s: s, when: s.now().Add(d), period: period, fn: fn, index: -1}
	s.mu.Lock()
	heap.Push(&s.queue, t)
	s.mu.Unlock()
	return t
}

// Pending returns the number of scheduled timers.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// RunDue runs every timer due at or before now and returns how many ran.
// Callbacks run without the scheduler lock held and may schedule or cancel
// timers.
func (s *Scheduler) RunDue(now time.Time) int {
	ran := 0
	for {
		s.mu.Lock()
		if len(s.queue) == 0 || s.queue[0].when.After(now) {
			s.mu.Unlock()
			return ran
		}
		t := heap.Pop(&s.queue).(*Timer)
		if t.cancelled.Load() {
			s.mu.Unlock()
			continue
		}
		if t.period > 0 {
			t.when = t.when.Add(t.period)
			if !t.when.After(now) {
				t.when = now.Add(t.period)
			}
			heap.Push(&s.queue, t)
		} else {
			t.fired.Store(true)
		}
		s.mu.Unlock()

		s.invoke(t)
		ran++
	}
}

func (s *Scheduler) invoke(t *Timer) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Scheduled callback panicked", zap.Any("panic", r))
		}
	}()
	t.fn()
}

// Run drives the scheduler until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.RunDue(s.now())
		}
	}
}

// timerQueue is a min-heap on due time.
type timerQueue []*Timer

func (q timerQueue) Len() int           { return len(q) }
func (q timerQueue) Less(i, j int) bool { return q[i].when.Before(q[j].when) }
func (q timerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *timerQueue) Push(x any) {
	t := x.(*Timer)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *timerQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}
