package main

import (
	"context"
	"sync"

	"github.com/studyhallbot/studyhall"
)

// registry keys active sessions and guarantees at most one per key.
// Each entry carries its own mutex and a cancel func consumed atomically
// with removal, so a timer callback in flight at removal time observes
// either the live session or nothing.
type registry[K comparable, S any] struct {
	mu          sync.RWMutex
	sessions    map[K]*S
	locks       map[K]*sync.Mutex
	cancelFuncs map[K]context.CancelFunc
}

func newRegistry[K comparable, S any]() *registry[K, S] {
	return &registry[K, S]{
		sessions:    make(map[K]*S),
		locks:       make(map[K]*sync.Mutex),
		cancelFuncs: make(map[K]context.CancelFunc),
	}
}

// Add registers s under key and returns a context that is cancelled when
// the session is removed. Returns ErrSessionAlreadyActive if the key is
// occupied; the existing session is untouched.
func (r *registry[K, S]) Add(ctx context.Context, key K, s *S) (context.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.locks[key]; exists {
		return nil, studyhall.ErrSessionAlreadyActive
	}

	r.locks[key] = &sync.Mutex{}
	r.sessions[key] = s
	sessionCtx, cancel := context.WithCancel(ctx)
	r.cancelFuncs[key] = cancel
	return sessionCtx, nil
}

// Get returns the session locked under its per-key mutex along with the
// unlock func, or (nil, nil) if the key is not registered.
func (r *registry[K, S]) Get(key K) (*S, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, exists := r.locks[key]
	if !exists {
		return nil, nil
	}

	l.Lock()
	return r.sessions[key], l.Unlock
}

func (r *registry[K, S]) Has(key K) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.locks[key]
	return exists
}

// Remove cancels the session's context under its per-key lock before
// dropping the entry, so no timer-driven mutation can land afterward.
func (r *registry[K, S]) Remove(key K) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, exists := r.locks[key]
	if !exists {
		return
	}

	l.Lock()
	r.cancelFuncs[key]()
	delete(r.cancelFuncs, key)
	delete(r.sessions, key)
	delete(r.locks, key)
	l.Unlock()
}

// Shutdown cancels every session loop. Entries stay registered; callers
// wait on their own WaitGroups for the loops to drain.
func (r *registry[K, S]) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.cancelFuncs {
		c()
	}
}
