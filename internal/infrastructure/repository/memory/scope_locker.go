package memory

import (
	"context"
	"sync"
)

// ScopeLocker serializes callbacks per (league, season) with an in-process
// mutex map. The postgres implementation uses advisory locks; this one
// covers tests and single-process runs.
type ScopeLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewScopeLocker() *ScopeLocker {
	return &ScopeLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *ScopeLocker) WithScopeLock(ctx context.Context, leagueID, season string, fn func(ctx context.Context) error) error {
	key := leagueID + "|" + season

	l.mu.Lock()
	lock, ok := l.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[key] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()

	return fn(ctx)
}
