package event

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/muurk/sccpd/internal/logging"
)

// Handler receives events. It runs synchronously in the publisher's
// goroutine and must not block.
type Handler func(Event)

type subscription struct {
	id      uint64
	mask    Type
	handler Handler
	active  atomic.Bool
}

// Bus delivers events to subscribers.
type Bus struct {
	mu     sync.Mutex
	subs   []*subscription
	nextID uint64
	now    func() time.Time
	logger *zap.Logger

	published atomic.Uint64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{now: time.Now}
}

// SetLogger overrides the process logger used for handler panics.
func (b *Bus) SetLogger(l *zap.Logger) {
	b.mu.Lock()
	b.logger = l
	b.mu.Unlock()
}

// Subscribe registers handler for every type in mask. The returned function
// removes the subscription and may be called more than once, including
// from inside a handler.
func (b *Bus) Subscribe(mask Type, handler Handler) (unsubscribe func()) {
	s := &subscription{mask: mask, handler: handler}
	s.active.Store(true)

	b.mu.Lock()
	b.nextID++
	s.id = b.nextID
	b.subs = append(b.subs, s)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(s) })
	}
}

func (b *Bus) remove(s *subscription) {
	s.active.Store(false)
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, cur := range b.subs {
		if cur == s {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers ev to every matching subscriber registered when the
// call starts, each at most once. Missing ID and Time are filled in.
func (b *Bus) Publish(ev Event) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Time.IsZero() {
		ev.Time = b.now()
	}
	b.published.Inc()

	b.mu.Lock()
	snapshot := make([]*subscription, len(b.subs))
	copy(snapshot, b.subs)
	b.mu.Unlock()

	for _, s := range snapshot {
		if s.mask&ev.Type == 0 || !s.active.Load() {
			continue
		}
		b.deliver(s, ev)
	}
}

func (b *Bus) deliver(s *subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log().Error("Event handler panicked",
				zap.String("event", ev.Type.String()),
				zap.Uint64("subscription", s.id),
				zap.Any("panic", r),
			)
		}
	}()
	s.handler(ev)
}

func (b *Bus) log() *zap.Logger {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.logger != nil {
		return b.logger
	}
	return logging.GetLogger()
}

// Subscribers returns the number of active subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Published returns the number of events published since creation.
func (b *Bus) Published() uint64 {
	return b.published.Load()
}
