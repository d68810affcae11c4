package flow

import "sync"

// userLocks serializes state transitions per user. Two updates for the
// same user delivered close together must not both observe the same
// pending state; the read-modify-write on it is a critical section.
type userLocks struct {
	mu sync.Mutex
	m  map[int64]*sync.Mutex
}

// acquire locks the mutex for the given user and returns its release func.
func (l *userLocks) acquire(userID int64) func() {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[int64]*sync.Mutex)
	}
	um, ok := l.m[userID]
	if !ok {
		um = &sync.Mutex{}
		l.m[userID] = um
	}
	l.mu.Unlock()

	um.Lock()
	return um.Unlock
}
