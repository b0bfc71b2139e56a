package ledger

import "sync"

// registry is a lock-protected keyed collection with atomic
// get-or-create. Two concurrent first observations of the same key
// never both construct: exactly one factory call wins and every caller
// sees the same value. Values are kept in insertion order for
// snapshots.
type registry[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V
	seq   []K
}

func newRegistry[K comparable, V any]() *registry[K, V] {
	return &registry[K, V]{items: make(map[K]V)}
}

// Upsert returns the existing value for key, or constructs one via
// create and inserts it. The boolean reports whether construction
// happened. A create error leaves the registry untouched.
func (r *registry[K, V]) Upsert(key K, create func() (V, error)) (V, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.items[key]; ok {
		return v, false, nil
	}

	v, err := create()
	if err != nil {
		var zero V
		return zero, false, err
	}

	r.items[key] = v
	r.seq = append(r.seq, key)
	return v, true, nil
}

// Get returns the value for key, if present.
func (r *registry[K, V]) Get(key K) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.items[key]
	return v, ok
}

// First returns the earliest inserted value, if any.
func (r *registry[K, V]) First() (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.seq) == 0 {
		var zero V
		return zero, false
	}
	return r.items[r.seq[0]], true
}

// Values returns a point-in-time copy in insertion order.
func (r *registry[K, V]) Values() []V {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]V, 0, len(r.seq))
	for _, k := range r.seq {
		out = append(out, r.items[k])
	}
	return out
}

// Len returns the number of entries.
func (r *registry[K, V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Clear empties the registry.
func (r *registry[K, V]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = make(map[K]V)
	r.seq = nil
}
