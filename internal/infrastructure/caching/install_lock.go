// Package caching holds the offline shell cache and its coordination helpers.
package caching

import "sync"

// InstallLock makes sure only one install runs for a given cache version at
// a time. Attempts for a held key fail fast instead of queueing.
type InstallLock struct {
	mu    sync.Mutex
	locks map[string]struct{}
}

func NewInstallLock() *InstallLock {
	return &InstallLock{
		locks: make(map[string]struct{}),
	}
}

// TryLock reports whether the lock for key was acquired. Non-blocking.
func (l *InstallLock) TryLock(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.locks[key]; exists {
		return false
	}
	l.locks[key] = struct{}{}
	return true
}

// Unlock releases key. Call it with defer after a successful TryLock.
func (l *InstallLock) Unlock(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.locks, key)
}
