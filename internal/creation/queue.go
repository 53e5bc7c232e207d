package creation

import "sync"

// keyedQueue runs tasks for the same key strictly in submission order while
// letting different keys proceed in parallel. Turns for one alpha would
// otherwise race on the progress record (both reading the same stale state).
type keyedQueue struct {
	mu      sync.Mutex
	waiting map[string][]func()
	active  map[string]bool
	wg      sync.WaitGroup
}

func newKeyedQueue() *keyedQueue {
	return &keyedQueue{
		waiting: make(map[string][]func()),
		active:  make(map[string]bool),
	}
}

// Do schedules fn for the key. The first task for an idle key claims a worker
// goroutine; tasks arriving while it runs are appended and drained in order.
func (q *keyedQueue) Do(key string, fn func()) {
	q.mu.Lock()
	if q.active[key] {
		q.waiting[key] = append(q.waiting[key], fn)
		q.mu.Unlock()
		return
	}
	q.active[key] = true
	q.mu.Unlock()

	q.wg.Add(1)
	go q.drain(key, fn)
}

func (q *keyedQueue) drain(key string, fn func()) {
	defer q.wg.Done()
	for {
		fn()

		q.mu.Lock()
		pending := q.waiting[key]
		if len(pending) == 0 {
			delete(q.waiting, key)
			delete(q.active, key)
			q.mu.Unlock()
			return
		}
		fn = pending[0]
		q.waiting[key] = pending[1:]
		q.mu.Unlock()
	}
}

// Wait blocks until every scheduled task has finished.
func (q *keyedQueue) Wait() { q.wg.Wait() }
