package engine

import "sync"

// roomLocks hands out one mutex per room id. Rooms are fully independent, so
// no cross-room ordering is ever needed. Entries are never removed; a stale
// mutex for a finished room is a few dozen bytes and guards nothing.
type roomLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newRoomLocks() *roomLocks {
	return &roomLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the room's mutex and returns the matching unlock.
func (l *roomLocks) Lock(roomID string) func() {
	l.mu.Lock()
	m, ok := l.locks[roomID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[roomID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
