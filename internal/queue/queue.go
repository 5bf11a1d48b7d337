// Package queue gates LLM dispatch through a bounded priority queue and a
// fixed worker pool, so interactive requests run ahead of batch chunk work.
package queue

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrQueueClosed is returned when operations are attempted on a closed queue
	ErrQueueClosed = errors.New("queue is closed")
)

// Job is a unit of work executed by the queue's workers.
type Job func()

// Stats tracks queue performance metrics.
type Stats struct {
	TotalEnqueued     int64
	TotalDequeued     int64
	HighPriorityCount int64
	CurrentSize       int
	PeakSize          int
	LastEnqueue       time.Time
	LastDequeue       time.Time
}

// Queue is a bounded job queue with two priority classes. Interactive
// jobs (priority) are dequeued before batch jobs; submission applies
// backpressure once the queue is at capacity.
type Queue struct {
	priorityQueue *priorityHeap
	regularQueue  []Job

	maxSize int
	workers int

	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond

	closed bool
	stats  Stats

	wg sync.WaitGroup
}

// New creates a queue with the given worker count and capacity, and
// starts its workers.
func New(workers, maxSize int) *Queue {
	if workers <= 0 {
		workers = 2
	}
	if maxSize <= 0 {
		maxSize = 64
	}

	q := &Queue{
		priorityQueue: &priorityHeap{},
		regularQueue:  make([]Job, 0, maxSize),
		maxSize:       maxSize,
		workers:       workers,
	}

	heap.Init(q.priorityQueue)
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)

	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}

	return q
}

// Submit adds a job to the queue, blocking while the queue is full.
// The context only bounds the wait for space, not the job itself.
func (q *Queue) Submit(ctx context.Context, priority bool, job Job) error {
	if job == nil {
		return errors.New("job cannot be nil")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	for q.size() >= q.maxSize && !q.closed {
		if err := ctx.Err(); err != nil {
			return err
		}
		q.waitNotFull(ctx)
	}

	if q.closed {
		return ErrQueueClosed
	}

	if priority {
		heap.Push(q.priorityQueue, &queueItem{job: job, seq: q.stats.TotalEnqueued})
		q.stats.HighPriorityCount++
	} else {
		q.regularQueue = append(q.regularQueue, job)
	}

	q.stats.TotalEnqueued++
	q.stats.LastEnqueue = time.Now()
	if s := q.size(); s > q.stats.PeakSize {
		q.stats.PeakSize = s
	}
	q.stats.CurrentSize = q.size()

	q.notEmpty.Signal()
	return nil
}

// Do submits a job and blocks until it has run, returning its error.
func (q *Queue) Do(ctx context.Context, priority bool, fn func() error) error {
	done := make(chan error, 1)
	err := q.Submit(ctx, priority, func() {
		done <- fn()
	})
	if err != nil {
		return err
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetStats returns current queue statistics.
func (q *Queue) GetStats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats := q.stats
	stats.CurrentSize = q.size()
	return stats
}

// Close shuts the queue down and waits for the workers to drain.
// Jobs already enqueued still run; new submissions fail.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
	q.mu.Unlock()

	q.wg.Wait()
	return nil
}

// worker dequeues and runs jobs until the queue is closed and drained.
func (q *Queue) worker() {
	defer q.wg.Done()

	for {
		job, ok := q.dequeue()
		if !ok {
			return
		}
		job()
	}
}

func (q *Queue) dequeue() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.size() == 0 && !q.closed {
		q.notEmpty.Wait()
	}

	if q.size() == 0 && q.closed {
		return nil, false
	}

	var job Job
	if q.priorityQueue.Len() > 0 {
		item := heap.Pop(q.priorityQueue).(*queueItem)
		job = item.job
	} else {
		job = q.regularQueue[0]
		q.regularQueue = q.regularQueue[1:]
	}

	q.stats.TotalDequeued++
	q.stats.LastDequeue = time.Now()
	q.stats.CurrentSize = q.size()

	q.notFull.Signal()
	return job, true
}

// size must be called with the lock held.
func (q *Queue) size() int {
	return q.priorityQueue.Len() + len(q.regularQueue)
}

// waitNotFull waits for space, waking early when ctx is cancelled.
// Must be called with the lock held.
func (q *Queue) waitNotFull(ctx context.Context) {
	if ctx.Done() == nil {
		q.notFull.Wait()
		return
	}

	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			q.mu.Lock()
			q.notFull.Broadcast()
			q.mu.Unlock()
		case <-stop:
		}
	}()
	q.notFull.Wait()
	close(stop)
}

// Priority heap: earlier submissions win among equal-priority items.
type queueItem struct {
	job Job
	seq int64
	idx int
}

type priorityHeap []*queueItem

func (pq priorityHeap) Len() int { return len(pq) }

func (pq priorityHeap) Less(i, j int) bool {
	return pq[i].seq < pq[j].seq
}

func (pq priorityHeap) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].idx = i
	pq[j].idx = j
}

func (pq *priorityHeap) Push(x interface{}) {
	item := x.(*queueItem)
	item.idx = len(*pq)
	*pq = append(*pq, item)
}

func (pq *priorityHeap) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.idx = -1
	*pq = old[0 : n-1]
	return item
}
