package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countJob struct {
	counter *atomic.Int64
	fail    bool
}

type countResult struct {
	err error
}

func (r countResult) GetError() error { return r.err }

func (j countJob) Execute(ctx context.Context) Result {
	select {
	case <-ctx.Done():
		return countResult{err: ctx.Err()}
	default:
	}
	j.counter.Add(1)
	if j.fail {
		return countResult{err: errors.New("job failed")}
	}
	return countResult{}
}

func TestPool_RunsAllJobs(t *testing.T) {
	var counter atomic.Int64
	pool := NewPool(context.Background(), 4)
	pool.Start()

	for i := 0; i < 20; i++ {
		pool.Submit(countJob{counter: &counter, fail: i%5 == 0})
	}
	results := pool.Wait()

	if counter.Load() != 20 {
		t.Errorf("executed %d jobs, want 20", counter.Load())
	}
	if len(results) != 20 {
		t.Fatalf("got %d results, want 20", len(results))
	}

	failed := 0
	for _, r := range results {
		if r.GetError() != nil {
			failed++
		}
	}
	if failed != 4 {
		t.Errorf("failed = %d, want 4", failed)
	}
}

func TestPool_LargeBatchSubmitThenWait(t *testing.T) {
	// A batch far larger than the internal queues, all submitted before
	// Wait, must still complete on a single worker.
	var counter atomic.Int64
	pool := NewPool(context.Background(), 1)
	pool.Start()

	const jobs = 50
	done := make(chan []Result, 1)
	go func() {
		for i := 0; i < jobs; i++ {
			pool.Submit(countJob{counter: &counter})
		}
		done <- pool.Wait()
	}()

	select {
	case results := <-done:
		if len(results) != jobs {
			t.Fatalf("got %d results, want %d", len(results), jobs)
		}
		if counter.Load() != jobs {
			t.Errorf("executed %d jobs, want %d", counter.Load(), jobs)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("submit then wait blocked on a large batch")
	}
}

func TestPool_ZeroWorkersClamped(t *testing.T) {
	var counter atomic.Int64
	pool := NewPool(context.Background(), 0)
	pool.Start()
	pool.Submit(countJob{counter: &counter})
	pool.Wait()

	if counter.Load() != 1 {
		t.Error("pool with clamped worker count did not run the job")
	}
}

func TestPool_CancellationStopsWork(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(ctx, 1)
	pool.Start()
	cancel()

	// Give the worker a moment to observe cancellation.
	time.Sleep(10 * time.Millisecond)

	var counter atomic.Int64
	pool.Submit(countJob{counter: &counter})
	pool.Shutdown()

	if counter.Load() != 0 {
		t.Error("job ran after cancellation")
	}
}

func TestLimiter_PacesCalls(t *testing.T) {
	limiter := NewLimiter(100, 1)

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := limiter.Wait(context.Background(), "llm"); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	// Burst 1 at 100 rps: three calls need roughly 20ms.
	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Errorf("calls not paced, elapsed %v", elapsed)
	}
}

func TestLimiter_DisabledWhenRateZero(t *testing.T) {
	limiter := NewLimiter(0, 0)
	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := limiter.Wait(context.Background(), "embedding"); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Error("disabled limiter should not block")
	}
}

func TestLimiter_BackendsIndependent(t *testing.T) {
	limiter := NewLimiter(1, 1)
	limiter.SetBackendRate("embedding", 1000, 10)

	if !limiter.Allow("embedding") {
		t.Error("embedding backend should have its own budget")
	}
}
