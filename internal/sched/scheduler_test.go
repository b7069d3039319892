package sched

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestScheduler() (*Scheduler, *fakeClock) {
	clk := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return New(WithClock(clk.now)), clk
}

func TestAfterRunsOnceWhenDue(t *testing.T) {
	s, clk := newTestScheduler()
	n := 0
	s.After(16*time.Second, func() { n++ })

	clk.advance(15 * time.Second)
	assert.Zero(t, s.RunDue(clk.now()))

	clk.advance(time.Second)
	assert.Equal(t, 1, s.RunDue(clk.now()))
	assert.Equal(t, 0, s.RunDue(clk.now().Add(time.Hour)))
	assert.Equal(t, 1, n)
	assert.Zero(t, s.Pending())
}

func TestCancel(t *testing.T) {
	s, clk := newTestScheduler()
	n := 0
	timer := s.After(time.Second, func() { n++ })

	assert.True(t, timer.Cancel())
	assert.False(t, timer.Cancel(), "second cancel is a no-op")

	clk.advance(time.Minute)
	s.RunDue(clk.now())
	assert.Zero(t, n)
	assert.Zero(t, s.Pending())
}

func TestCancelAfterFire(t *testing.T) {
	s, clk := newTestScheduler()
	timer := s.After(time.Second, func() {})
	clk.advance(time.Second)
	s.RunDue(clk.now())

	assert.False(t, timer.Cancel())
}

func TestNilTimerCancel(t *testing.T) {
	var timer *Timer
	assert.False(t, timer.Cancel())
}

func TestEvery(t *testing.T) {
	s, clk := newTestScheduler()
	n := 0
	timer := s.Every(10*time.Second, func() { n++ })

	for i := 0; i < 3; i++ {
		clk.advance(10 * time.Second)
		s.RunDue(clk.now())
	}
	assert.Equal(t, 3, n)

	// A long stall runs the job once, not once per missed period.
	clk.advance(time.Minute)
	s.RunDue(clk.now())
	assert.Equal(t, 4, n)
	assert.Equal(t, clk.now().Add(10*time.Second), timer.When())

	assert.True(t, timer.Cancel())
	clk.advance(time.Minute)
	s.RunDue(clk.now())
	assert.Equal(t, 4, n)
}

func TestOrdering(t *testing.T) {
	s, clk := newTestScheduler()
	var order []string
	s.After(3*time.Second, func() { order = append(order, "c") })
	s.After(1*time.Second, func() { order = append(order, "a") })
	s.After(2*time.Second, func() { order = append(order, "b") })

	clk.advance(5 * time.Second)
	s.RunDue(clk.now())
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestCallbackReschedules(t *testing.T) {
	s, clk := newTestScheduler()
	var second *Timer
	fired := false
	s.After(time.Second, func() {
		second = s.After(time.Second, func() { fired = true })
	})

	clk.advance(time.Second)
	s.RunDue(clk.now())
	require.NotNil(t, second)
	assert.False(t, fired)

	clk.advance(time.Second)
	s.RunDue(clk.now())
	assert.True(t, fired)
}

func TestCallbackCancelsOther(t *testing.T) {
	s, clk := newTestScheduler()
	later := false
	var other *Timer
	s.After(time.Second, func() { other.Cancel() })
	other = s.After(2*time.Second, func() { later = true })

	clk.advance(3 * time.Second)
	s.RunDue(clk.now())
	assert.False(t, later)
}

func TestPanicDoesNotStopOthers(t *testing.T) {
	s, clk := newTestScheduler()
	ran := false
	s.After(time.Second, func() { panic("boom") })
	s.After(time.Second, func() { ran = true })

	clk.advance(time.Second)
	assert.Equal(t, 2, s.RunDue(clk.now()))
	assert.True(t, ran)
}

func TestRunStopsOnContext(t *testing.T) {
	s := New(WithTick(time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	fired := make(chan struct{}, 1)
	s.After(0, func() { fired <- struct{}{} })

	go func() {
		_ = s.Run(ctx)
		close(done)
	}()

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}
