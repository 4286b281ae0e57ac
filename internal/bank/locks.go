package bank

import (
	"slices"
	"sync"
)

// accountLocks serializes operations per account inside this process.
// Mutexes are never evicted; there is at most one per account.
type accountLocks struct {
	mu   sync.Mutex
	byID map[int64]*sync.Mutex
}

func newAccountLocks() *accountLocks {
	return &accountLocks{byID: make(map[int64]*sync.Mutex)}
}

func (l *accountLocks) get(id int64) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.byID[id]
	if !ok {
		m = &sync.Mutex{}
		l.byID[id] = m
	}
	return m
}

// lock acquires the locks of ids in ascending order and returns the
// function releasing them. Duplicate ids are locked once.
func (l *accountLocks) lock(ids ...int64) func() {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	held := make([]*sync.Mutex, 0, len(sorted))
	for _, id := range sorted {
		m := l.get(id)
		m.Lock()
		held = append(held, m)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
