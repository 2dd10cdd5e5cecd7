package datastore

import (
	"container/heap"
	"context"
	"database/sql"
	"sync"
)

const (
	priorityDashboard = 999
	priorityIngest    = 0
)

type item struct {
	fn       func(*sql.DB) error
	done     chan error
	priority int
	index    int
}

// DB hands the session to queued functions, highest priority first, so
// dashboard reads are not stuck behind bulk ingestion.
type DB struct {
	session *sql.DB
	queue   *priorityQueue
	cond    *sync.Cond
	closed  bool
	wg      sync.WaitGroup
}

func newDB(session *sql.DB, workers int) *DB {
	if workers < 1 {
		workers = 1
	}
	db := &DB{
		session: session,
		queue:   &priorityQueue{},
		cond:    sync.NewCond(&sync.Mutex{}),
	}
	heap.Init(db.queue)
	for i := 0; i < workers; i++ {
		db.wg.Add(1)
		go db.work()
	}
	return db
}

func (db *DB) work() {
	defer db.wg.Done()
	for {
		db.cond.L.Lock()
		for db.queue.Len() == 0 && !db.closed {
			db.cond.Wait()
		}
		if db.queue.Len() == 0 && db.closed {
			db.cond.L.Unlock()
			return
		}
		it := heap.Pop(db.queue).(*item)
		db.cond.L.Unlock()

		it.done <- it.fn(db.session)
	}
}

// Query runs fn on a worker and waits for its result or for ctx to end.
func (db *DB) Query(ctx context.Context, priority int, fn func(*sql.DB) error) error {
	it := &item{
		fn:       fn,
		priority: priority,
		done:     make(chan error, 1),
	}

	db.cond.L.Lock()
	if db.closed {
		db.cond.L.Unlock()
		return errDBClosed
	}
	heap.Push(db.queue, it)
	db.cond.Signal()
	db.cond.L.Unlock()

	select {
	case err := <-it.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains queued queries, stops the workers and closes the session.
func (db *DB) Close() error {
	db.cond.L.Lock()
	db.closed = true
	db.cond.Broadcast()
	db.cond.L.Unlock()
	db.wg.Wait()
	if db.session == nil {
		return nil
	}
	return db.session.Close()
}

type priorityQueue []*item

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	return pq[i].priority > pq[j].priority
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x interface{}) {
	n := len(*pq)
	item := x.(*item)
	item.index = n
	*pq = append(*pq, item)
}

func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[0 : n-1]
	return item
}
