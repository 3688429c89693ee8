// Package lock provides per-project locks that serialize reconciliation.
package lock

import (
	"context"
	"sync"
)

type keyedMutex struct {
	ch   chan struct{}
	refs int
}

// LocalLocker serializes work per project within one process.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*keyedMutex
}

// NewLocalLocker creates an in-process keyed mutex.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*keyedMutex)}
}

// WithLock runs fn while holding the project's lock. Waiting honours ctx.
func (l *LocalLocker) WithLock(ctx context.Context, projectID string, fn func(ctx context.Context) error) error {
	km := l.acquire(projectID)
	defer l.release(projectID, km)

	select {
	case km.ch <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-km.ch }()

	return fn(ctx)
}

func (l *LocalLocker) acquire(projectID string) *keyedMutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	km, ok := l.locks[projectID]
	if !ok {
		km = &keyedMutex{ch: make(chan struct{}, 1)}
		l.locks[projectID] = km
	}
	km.refs++
	return km
}

func (l *LocalLocker) release(projectID string, km *keyedMutex) {
	l.mu.Lock()
	defer l.mu.Unlock()
	km.refs--
	if km.refs == 0 {
		delete(l.locks, projectID)
	}
}

// Held returns how many projects currently have waiters or holders.
func (l *LocalLocker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
