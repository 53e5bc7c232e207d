package creation

import (
	"sync"
	"testing"
	"time"
)

func TestKeyedQueuePreservesOrderPerKey(t *testing.T) {
	q := newKeyedQueue()
	var mu sync.Mutex
	var got []int
	for i := 0; i < 50; i++ {
		i := i
		q.Do("k", func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}
	q.Wait()
	if len(got) != 50 {
		t.Fatalf("ran %d tasks, want 50", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("out of order at %d: %v", i, got[:i+1])
		}
	}
}

func TestKeyedQueueKeysRunConcurrently(t *testing.T) {
	q := newKeyedQueue()
	release := make(chan struct{})
	done := make(chan struct{})

	// Task on key a blocks until the task on key b has run.
	q.Do("a", func() {
		<-release
		close(done)
	})
	q.Do("b", func() { close(release) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("keys serialized against each other")
	}
	q.Wait()
}

func TestKeyedQueueReusesKeyAfterDrain(t *testing.T) {
	q := newKeyedQueue()
	ran := 0
	var mu sync.Mutex
	q.Do("k", func() { mu.Lock(); ran++; mu.Unlock() })
	q.Wait()
	q.Do("k", func() { mu.Lock(); ran++; mu.Unlock() })
	q.Wait()
	if ran != 2 {
		t.Fatalf("ran = %d, want 2", ran)
	}
}
