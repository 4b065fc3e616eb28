package services

import "sync"

// AccountLocks hands out one mutex per account. Every state mutation
// runs read-modify-write against the KV store, so the services enforce
// the single-writer assumption the dashboard got for free from the
// browser's event loop. Two processes against the same store are still
// last-write-wins, same as two browser tabs were.
type AccountLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewAccountLocks() *AccountLocks {
	return &AccountLocks{locks: make(map[string]*sync.Mutex)}
}

func (a *AccountLocks) lock(accountID string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.locks[accountID]
	if !ok {
		l = &sync.Mutex{}
		a.locks[accountID] = l
	}
	return l
}
