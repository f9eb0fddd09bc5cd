package vcs

import "sync"

// repoLocks serializes operations per repository name. Operations on
// different repositories proceed in parallel.
type repoLocks struct {
	mu    sync.Mutex
	locks map[string]*repoLock
}

type repoLock struct {
	mu   sync.Mutex
	refs int
}

func newRepoLocks() *repoLocks {
	return &repoLocks{locks: make(map[string]*repoLock)}
}

// lock acquires the lock for name and returns the function that releases it.
// Entries are dropped from the map once no caller holds or waits on them.
func (l *repoLocks) lock(name string) func() {
	l.mu.Lock()
	rl, ok := l.locks[name]
	if !ok {
		rl = &repoLock{}
		l.locks[name] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.mu.Lock()
	return func() {
		rl.mu.Unlock()
		l.mu.Lock()
		rl.refs--
		if rl.refs == 0 {
			delete(l.locks, name)
		}
		l.mu.Unlock()
	}
}
