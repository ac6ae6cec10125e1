// Package session keeps per-browser state keyed by an opaque session id.
package session

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// DefaultMaxSize bounds a registry created without WithMaxSize.
const DefaultMaxSize = 1024

// NewID returns a fresh random session id.
func NewID() string { return uuid.NewString() }

// ValidID reports whether id could have come from NewID.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// node is one entry of the recency list.
type node[T any] struct {
	id         string
	value      T
	weight     int64
	prev, next *node[T]
}

// Registry maps session ids to values.
// For bounded mode (maxSize > 0): a doubly linked recency list, head is the
// most recently used entry and the tail is evicted first.
// For unbounded mode (maxSize <= 0): the map alone.
// With a byte budget, the list also orders eviction by weight.
type Registry[T any] struct {
	mu       sync.Mutex
	entries  map[string]*node[T]
	head     *node[T]
	tail     *node[T]
	maxSize  int
	size     atomic.Int64
	maxBytes int64
	weigh    func(T) int64
	bytes    atomic.Int64
	onEvict  func(id string, v T)
}

// New creates a registry with configuration options.
func New[T any](opts ...Option[T]) *Registry[T] {
	r := &Registry[T]{maxSize: DefaultMaxSize}
	for _, opt := range opts {
		opt(r)
	}
	r.entries = make(map[string]*node[T])
	return r
}

// Get returns the value for id and marks it as recently used.
func (r *Registry[T]) Get(_ context.Context, id string) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.entries[id]
	if !ok {
		var zero T
		return zero, false
	}
	r.moveToFront(n)
	return n.value, true
}

// GetOrCreate returns the value for id, creating it with create when absent.
// The second result is true when a new value was created.
func (r *Registry[T]) GetOrCreate(_ context.Context, id string, create func() T) (T, bool) {
	r.mu.Lock()
	if n, ok := r.entries[id]; ok {
		r.moveToFront(n)
		r.mu.Unlock()
		return n.value, false
	}

	var evicted []*node[T]
	if r.maxSize > 0 && len(r.entries) >= r.maxSize {
		if n := r.evictTail(); n != nil {
			evicted = append(evicted, n)
		}
	}

	n := &node[T]{id: id, value: create()}
	r.entries[id] = n
	r.pushFront(n)
	r.size.Add(1)
	r.setWeight(n)
	evicted = append(evicted, r.evictOverBudget(n)...)
	r.mu.Unlock()

	r.notify(evicted)
	return n.value, true
}

// Reweigh re-measures id after its value changed, marks it as recently used
// and evicts least recently used sessions until the byte budget holds again.
// It reports whether id was present.
func (r *Registry[T]) Reweigh(_ context.Context, id string) bool {
	r.mu.Lock()
	n, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return false
	}
	r.moveToFront(n)
	r.setWeight(n)
	evicted := r.evictOverBudget(n)
	r.mu.Unlock()

	r.notify(evicted)
	return true
}

// Range calls fn for every entry, most recently used first, until fn returns false.
// fn must not call back into the registry.
func (r *Registry[T]) Range(fn func(id string, v T) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for n := r.head; n != nil; n = n.next {
		if !fn(n.id, n.value) {
			return
		}
	}
}

// Size returns the current number of sessions.
func (r *Registry[T]) Size() int64 {
	return r.size.Load()
}

// Bytes returns the total weight last measured across all sessions.
func (r *Registry[T]) Bytes() int64 {
	return r.bytes.Load()
}

// setWeight records the current weight of n.
// Must be called with r.mu held.
func (r *Registry[T]) setWeight(n *node[T]) {
	if r.weigh == nil {
		return
	}
	w := r.weigh(n.value)
	r.bytes.Add(w - n.weight)
	n.weight = w
}

// evictOverBudget drops entries from the tail while the total weight is
// above the budget. keep is never evicted.
// Must be called with r.mu held.
func (r *Registry[T]) evictOverBudget(keep *node[T]) []*node[T] {
	if r.maxBytes <= 0 || r.weigh == nil {
		return nil
	}
	var evicted []*node[T]
	for r.bytes.Load() > r.maxBytes && r.tail != nil && r.tail != keep {
		evicted = append(evicted, r.evictTail())
	}
	return evicted
}

// notify runs the eviction callback. It must be called without r.mu held.
func (r *Registry[T]) notify(evicted []*node[T]) {
	if r.onEvict == nil {
		return
	}
	for _, n := range evicted {
		r.onEvict(n.id, n.value)
	}
}

// evictTail removes the least recently used entry.
// Must be called with r.mu held.
func (r *Registry[T]) evictTail() *node[T] {
	n := r.tail
	if n == nil {
		return nil
	}
	delete(r.entries, n.id)
	r.unlink(n)
	r.size.Add(-1)
	r.bytes.Add(-n.weight)
	return n
}

func (r *Registry[T]) pushFront(n *node[T]) {
	n.prev = nil
	n.next = r.head
	if r.head != nil {
		r.head.prev = n
	}
	r.head = n
	if r.tail == nil {
		r.tail = n
	}
}

func (r *Registry[T]) unlink(n *node[T]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		r.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		r.tail = n.prev
	}
	n.prev, n.next = nil, nil
}

func (r *Registry[T]) moveToFront(n *node[T]) {
	if r.head == n {
		return
	}
	r.unlink(n)
	r.pushFront(n)
}
