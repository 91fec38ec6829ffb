package search

import (
	"context"
	"log"
	"sync"
	"time"
)

// Registry holds one State per owner, such as an open page or modal. States
// not used for longer than the idle timeout are closed and dropped.
type Registry[Q comparable, T any] struct {
	newState func(owner string) *State[Q, T]
	idle     time.Duration
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]*registryEntry[Q, T]
}

type registryEntry[Q comparable, T any] struct {
	state    *State[Q, T]
	lastUsed time.Time
}

func NewRegistry[Q comparable, T any](newState func(owner string) *State[Q, T], idle time.Duration) *Registry[Q, T] {
	return &Registry[Q, T]{
		newState: newState,
		idle:     idle,
		now:      time.Now,
		entries:  make(map[string]*registryEntry[Q, T]),
	}
}

// Get returns the owner's State, creating it on first use.
func (r *Registry[Q, T]) Get(owner string) *State[Q, T] {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[owner]
	if !ok {
		e = &registryEntry[Q, T]{state: r.newState(owner)}
		r.entries[owner] = e
	}
	e.lastUsed = r.now()
	return e.state
}

// Peek returns the owner's State without creating or touching it.
func (r *Registry[Q, T]) Peek(owner string) (*State[Q, T], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[owner]
	if !ok {
		return nil, false
	}
	return e.state, true
}

// Release closes and forgets the owner's State.
func (r *Registry[Q, T]) Release(owner string) bool {
	r.mu.Lock()
	e, ok := r.entries[owner]
	delete(r.entries, owner)
	r.mu.Unlock()

	if ok {
		e.state.Close()
	}
	return ok
}

func (r *Registry[Q, T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep releases every State idle for longer than the timeout.
func (r *Registry[Q, T]) Sweep() int {
	if r.idle <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idle)

	r.mu.Lock()
	var evicted []*State[Q, T]
	for owner, e := range r.entries {
		if e.lastUsed.Before(cutoff) {
			evicted = append(evicted, e.state)
			delete(r.entries, owner)
		}
	}
	r.mu.Unlock()

	for _, s := range evicted {
		s.Close()
	}
	return len(evicted)
}

// ProcessJobs sweeps idle States so a Registry can run under a jobs.Worker.
func (r *Registry[Q, T]) ProcessJobs(context.Context) error {
	if n := r.Sweep(); n > 0 {
		log.Printf("search: evicted %d idle search states", n)
	}
	return nil
}

// Close releases every State.
func (r *Registry[Q, T]) Close() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*registryEntry[Q, T])
	r.mu.Unlock()

	for _, e := range entries {
		e.state.Close()
	}
}
