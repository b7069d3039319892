// Package refcount provides a keyed object store whose entries are shared
// through counted references.
//
// The store itself owns one base reference to every entry. Callers obtain
// further references with Get or Ref.Retain and must Release each of them.
// When the last reference goes away, the entry's destructor runs
// synchronously in the releasing goroutine.
//
// Entries can be flagged pending-delete (configuration removed them) or
// pending-update (a new configuration must be applied once they are idle).
// Reap removes pending-delete entries nobody but the store still holds.
package refcount

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/atomic"
)

// ErrDuplicate is returned by Insert when the id is already present.
var ErrDuplicate = errors.New("duplicate id")

type entry[T any] struct {
	id         string
	value      T
	destructor func(T)

	refs          atomic.Int32
	pendingDelete atomic.Bool
	pendingUpdate atomic.Bool
}

// retain adds a reference unless the entry is already dying.
func (e *entry[T]) retain() bool {
	for {
		n := e.refs.Load()
		if n <= 0 {
			return false
		}
		if e.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

func (e *entry[T]) release() {
	n := e.refs.Dec()
	if n == 0 && e.destructor != nil {
		e.destructor(e.value)
	}
	if n < 0 {
		panic(fmt.Sprintf("refcount: %q released below zero", e.id))
	}
}

// Ref is one counted reference. Release is idempotent per Ref.
type Ref[T any] struct {
	e        *entry[T]
	released atomic.Bool
}

// ID returns the key of the referenced entry.
func (r *Ref[T]) ID() string { return r.e.id }

// Value returns the referenced object.
func (r *Ref[T]) Value() T { return r.e.value }

// Retain returns a new reference to the same entry. It fails when this
// handle was already released or the entry is being destroyed.
func (r *Ref[T]) Retain() (*Ref[T], bool) {
	if r == nil || r.released.Load() || !r.e.retain() {
		return nil, false
	}
	return &Ref[T]{e: r.e}, true
}

// Release drops the reference. Calling it more than once has no effect.
func (r *Ref[T]) Release() {
	if r == nil || !r.released.CompareAndSwap(false, true) {
		return
	}
	r.e.release()
}

// PendingDelete reports whether the entry was marked for removal.
func (r *Ref[T]) PendingDelete() bool { return r.e.pendingDelete.Load() }

// PendingUpdate reports whether the entry waits for a configuration swap.
func (r *Ref[T]) PendingUpdate() bool { return r.e.pendingUpdate.Load() }

// Store holds entries of one kind keyed by id.
type Store[T any] struct {
	name    string
	mu      sync.RWMutex
	entries map[string]*entry[T]
}

// NewStore creates an empty store. name is used in error messages.
func NewStore[T any](name string) *Store[T] {
	return &Store[T]{name: name, entries: make(map[string]*entry[T])}
}

// Insert adds value under id and returns a reference for the caller in
// addition to the store's own. destructor may be nil.
func (s *Store[T]) Insert(id string, value T, destructor func(T)) (*Ref[T], error) {
	e := &entry[T]{id: id, value: value, destructor: destructor}
	e.refs.Store(2)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; ok {
		return nil, fmt.Errorf("%s %q: %w", s.name, id, ErrDuplicate)
	}
	s.entries[id] = e
	return &Ref[T]{e: e}, nil
}

// Get returns a new reference to id, or false if absent.
func (s *Store[T]) Get(id string) (*Ref[T], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok || !e.retain() {
		return nil, false
	}
	return &Ref[T]{e: e}, true
}

// Remove unlinks id and drops the store's base reference. Outstanding
// references stay valid; the destructor runs when the last is released.
func (s *Store[T]) Remove(id string) bool {
	s.mu.Lock()
	e, ok := s.entries[id]
	if ok {
		delete(s.entries, id)
	}
	s.mu.Unlock()
	if ok {
		e.release()
	}
	return ok
}

// MarkPendingDelete flags id for removal by Reap.
func (s *Store[T]) MarkPendingDelete(id string) bool {
	return s.mark(id, func(e *entry[T]) { e.pendingDelete.Store(true) })
}

// MarkPendingUpdate flags id as waiting for a configuration swap.
func (s *Store[T]) MarkPendingUpdate(id string) bool {
	return s.mark(id, func(e *entry[T]) { e.pendingUpdate.Store(true) })
}

// ClearPendingUpdate resets the pending-update flag and reports whether it
// was set.
func (s *Store[T]) ClearPendingUpdate(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	return ok && e.pendingUpdate.CompareAndSwap(true, false)
}

// ClearPendingDelete resets the pending-delete flag, used when a reload
// brings an entry back before it was reaped.
func (s *Store[T]) ClearPendingDelete(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	return ok && e.pendingDelete.CompareAndSwap(true, false)
}

func (s *Store[T]) mark(id string, fn func(*entry[T])) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if ok {
		fn(e)
	}
	return ok
}

// Reap removes pending-delete entries that only the store references and
// for which canReap (if non-nil) agrees. It returns the removed ids.
func (s *Store[T]) Reap(canReap func(id string, value T) bool) []string {
	s.mu.Lock()
	var victims []*entry[T]
	for id, e := range s.entries {
		if !e.pendingDelete.Load() || e.refs.Load() != 1 {
			continue
		}
		if canReap != nil && !canReap(id, e.value) {
			continue
		}
		delete(s.entries, id)
		victims = append(victims, e)
	}
	s.mu.Unlock()

	ids := make([]string, 0, len(victims))
	for _, e := range victims {
		ids = append(ids, e.id)
		e.release()
	}
	sort.Strings(ids)
	return ids
}

// Range calls fn for a snapshot of the entries in id order, holding a
// reference to each for the duration of the walk. Entries removed during
// the walk are still visited. Returning false stops the iteration.
func (s *Store[T]) Range(fn func(id string, value T) bool) {
	s.mu.RLock()
	refs := make([]*Ref[T], 0, len(s.entries))
	for _, e := range s.entries {
		if e.retain() {
			refs = append(refs, &Ref[T]{e: e})
		}
	}
	s.mu.RUnlock()

	sort.Slice(refs, func(i, j int) bool { return refs[i].e.id < refs[j].e.id })
	defer func() {
		for _, r := range refs {
			r.Release()
		}
	}()
	for _, r := range refs {
		if !fn(r.e.id, r.e.value) {
			return
		}
	}
}

// Len returns the number of linked entries.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Live returns the current reference count of id, including the store's
// base reference. It returns 0 for unknown ids.
func (s *Store[T]) Live(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.entries[id]; ok {
		return int(e.refs.Load())
	}
	return 0
}

// IDs returns the linked ids in sorted order.
func (s *Store[T]) IDs() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids
}
