// Package dedupe is the at-most-once barrier for side-effecting events.
package dedupe

import (
	"strings"
	"sync"
)

// Registry is a process-local set of composite event keys. Keys are only
// ever added during a process lifetime; restarts rehydrate via Load.
type Registry struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{seen: make(map[string]struct{})}
}

// Key builds the composite dedupe key: team|event|game[|role].
func Key(parts ...string) string {
	return strings.Join(parts, "|")
}

// CheckAndMark atomically inserts the key and reports whether it was
// already present. Insert-if-absent in one critical section, so two
// concurrent retries cannot both pass the barrier.
func (r *Registry) CheckAndMark(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.seen[key]; ok {
		return true
	}
	r.seen[key] = struct{}{}
	return false
}

// Forget releases a reservation taken by CheckAndMark. Called when the
// store write behind the event fails, so the client's retry is not
// rejected as a duplicate.
func (r *Registry) Forget(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.seen, key)
}

// Load merges persisted keys at startup.
func (r *Registry) Load(keys []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, key := range keys {
		if key == "" {
			continue
		}
		r.seen[key] = struct{}{}
	}
}

// Len reports the number of tracked keys.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}
