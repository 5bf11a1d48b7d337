package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestQueueRunsJobs(t *testing.T) {
	q := New(2, 8)
	defer q.Close() //nolint:errcheck

	var ran atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		err := q.Submit(context.Background(), false, func() {
			ran.Add(1)
			wg.Done()
		})
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}

	wg.Wait()
	if got := ran.Load(); got != 20 {
		t.Errorf("ran %d jobs, want 20", got)
	}
}

func TestQueuePriorityRunsFirst(t *testing.T) {
	// One stalled worker guarantees a backlog, so dequeue order is
	// observable.
	q := New(1, 16)
	defer q.Close() //nolint:errcheck

	release := make(chan struct{})
	var mu sync.Mutex
	var order []string
	var wg sync.WaitGroup

	_ = q.Submit(context.Background(), false, func() { <-release })

	// Give the worker a chance to pick up the blocker.
	time.Sleep(50 * time.Millisecond)

	add := func(name string, priority bool) {
		wg.Add(1)
		_ = q.Submit(context.Background(), priority, func() {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			wg.Done()
		})
	}

	add("batch-1", false)
	add("batch-2", false)
	add("urgent", true)

	close(release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 || order[0] != "urgent" {
		t.Errorf("execution order = %v, want urgent first", order)
	}
}

func TestQueueBackpressure(t *testing.T) {
	q := New(1, 1)
	defer q.Close() //nolint:errcheck

	release := make(chan struct{})
	_ = q.Submit(context.Background(), false, func() { <-release })
	time.Sleep(50 * time.Millisecond)

	// Queue is now full with one pending job; the next Submit must block
	// until the context gives up.
	_ = q.Submit(context.Background(), false, func() {})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := q.Submit(ctx, false, func() {})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Submit() on a full queue = %v, want DeadlineExceeded", err)
	}

	close(release)
}

func TestQueueDo(t *testing.T) {
	q := New(1, 8)
	defer q.Close() //nolint:errcheck

	if err := q.Do(context.Background(), true, func() error { return nil }); err != nil {
		t.Errorf("Do() error = %v, want nil", err)
	}

	wantErr := errors.New("job failed")
	if err := q.Do(context.Background(), true, func() error { return wantErr }); !errors.Is(err, wantErr) {
		t.Errorf("Do() error = %v, want the job's error", err)
	}
}

func TestQueueCloseDrains(t *testing.T) {
	q := New(2, 16)

	var ran atomic.Int64
	for i := 0; i < 10; i++ {
		_ = q.Submit(context.Background(), false, func() {
			time.Sleep(5 * time.Millisecond)
			ran.Add(1)
		})
	}

	if err := q.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if got := ran.Load(); got != 10 {
		t.Errorf("Close() drained %d jobs, want 10", got)
	}

	if err := q.Submit(context.Background(), false, func() {}); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Submit() after Close = %v, want ErrQueueClosed", err)
	}

	// Closing twice is fine.
	if err := q.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestQueueNilJob(t *testing.T) {
	q := New(1, 4)
	defer q.Close() //nolint:errcheck

	if err := q.Submit(context.Background(), false, nil); err == nil {
		t.Error("expected an error for a nil job")
	}
}

func TestQueueStats(t *testing.T) {
	q := New(1, 8)
	defer q.Close() //nolint:errcheck

	var wg sync.WaitGroup
	wg.Add(2)
	_ = q.Submit(context.Background(), true, func() { wg.Done() })
	_ = q.Submit(context.Background(), false, func() { wg.Done() })
	wg.Wait()

	stats := q.GetStats()
	if stats.TotalEnqueued != 2 {
		t.Errorf("TotalEnqueued = %d, want 2", stats.TotalEnqueued)
	}
	if stats.HighPriorityCount != 1 {
		t.Errorf("HighPriorityCount = %d, want 1", stats.HighPriorityCount)
	}
	if stats.LastEnqueue.IsZero() {
		t.Error("LastEnqueue must be set after a submission")
	}
}
