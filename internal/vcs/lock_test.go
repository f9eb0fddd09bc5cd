package vcs

import (
	"sync"
	"testing"
	"time"
)

func TestRepoLocks(t *testing.T) {
	t.Run("same name is exclusive", func(t *testing.T) {
		l := newRepoLocks()
		unlock := l.lock("a")

		acquired := make(chan struct{})
		go func() {
			release := l.lock("a")
			close(acquired)
			release()
		}()

		select {
		case <-acquired:
			t.Fatal("second lock acquired while first held")
		case <-time.After(20 * time.Millisecond):
		}

		unlock()
		select {
		case <-acquired:
		case <-time.After(time.Second):
			t.Fatal("second lock not acquired after release")
		}
	})

	t.Run("different names do not block", func(t *testing.T) {
		l := newRepoLocks()
		unlock := l.lock("a")
		defer unlock()

		done := make(chan struct{})
		go func() {
			l.lock("b")()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("lock on b blocked by lock on a")
		}
	})

	t.Run("entries are released", func(t *testing.T) {
		l := newRepoLocks()
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				l.lock("a")()
			}()
		}
		wg.Wait()

		l.mu.Lock()
		defer l.mu.Unlock()
		if len(l.locks) != 0 {
			t.Errorf("locks map has %d entries after release, want 0", len(l.locks))
		}
	})
}
