package services

import "sync"

// sessionLocks hands out one mutex per session code. Entries are dropped
// once nobody holds or waits on them.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*refMutex)}
}

// Lock blocks until the session's mutex is held and returns its release func.
func (l *sessionLocks) Lock(code string) (unlock func()) {
	l.mu.Lock()
	m, ok := l.locks[code]
	if !ok {
		m = &refMutex{}
		l.locks[code] = m
	}
	m.refs++
	l.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		l.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(l.locks, code)
		}
		l.mu.Unlock()
	}
}

func (l *sessionLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
