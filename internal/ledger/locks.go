package ledger

import "sync"

// accountLocks hands out one mutex per account so that balance-check-then-
// append runs as a single atomic step per account. Locks are created
// lazily and never reclaimed; the map grows with the set of active
// accounts, which is bounded by the user base.
type accountLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: make(map[string]*sync.Mutex)}
}

func (a *accountLocks) get(accountID string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()

	l, ok := a.locks[accountID]
	if !ok {
		l = &sync.Mutex{}
		a.locks[accountID] = l
	}
	return l
}

// lockPair acquires both accounts' locks in lexicographic order so two
// transfers moving funds in opposite directions cannot deadlock. The
// returned func releases both.
func (a *accountLocks) lockPair(first, second string) func() {
	x, y := a.get(first), a.get(second)
	if first > second {
		x, y = y, x
	}
	x.Lock()
	y.Lock()
	return func() {
		y.Unlock()
		x.Unlock()
	}
}
