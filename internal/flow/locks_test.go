package flow

import (
	"sync"
	"testing"
)

func TestUserLocksSerializePerUser(t *testing.T) {
	var locks userLocks
	const workers = 16
	const rounds = 50

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < rounds; j++ {
				unlock := locks.acquire(42)
				counter++
				unlock()
			}
		}()
	}
	wg.Wait()

	if counter != workers*rounds {
		t.Fatalf("lost updates under the user lock: %d", counter)
	}
}

func TestUserLocksIndependentUsers(t *testing.T) {
	var locks userLocks

	unlockA := locks.acquire(1)
	done := make(chan struct{})
	go func() {
		unlockB := locks.acquire(2)
		unlockB()
		close(done)
	}()
	<-done
	unlockA()
}
