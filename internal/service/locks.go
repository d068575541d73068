package service

import "sync"

// DebtLocks serializes read-modify-write commits per debt so a sweep-driven
// reminder and an inbound-driven escalation on the same debt cannot
// interleave. Channel and intelligence I/O must happen outside the lock;
// callers acquire it only around the state commit.
type DebtLocks struct {
	mu    sync.Mutex
	locks map[int64]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func NewDebtLocks() *DebtLocks {
	return &DebtLocks{locks: make(map[int64]*lockEntry)}
}

// Lock acquires the mutex for one debt and returns the release func. Entries
// are reference-counted so the map does not grow with the portfolio.
func (l *DebtLocks) Lock(debtID int64) func() {
	l.mu.Lock()
	e, ok := l.locks[debtID]
	if !ok {
		e = &lockEntry{}
		l.locks[debtID] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, debtID)
		}
		l.mu.Unlock()
	}
}
