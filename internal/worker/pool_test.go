package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewPool_Workers(t *testing.T) {
	for in, want := range map[int]int{5: 5, 0: 1, -1: 1} {
		if p := NewPool[int](context.Background(), in); p.workers != want {
			t.Errorf("NewPool(%d) workers = %d, want %d", in, p.workers, want)
		}
	}
}

func TestPool_PreservesSubmissionOrder(t *testing.T) {
	pool := NewPool[int](context.Background(), 4)
	pool.Start()

	for i := 0; i < 20; i++ {
		i := i
		index, ok := pool.Submit(func(ctx context.Context) int {
			// later tasks finish first
			time.Sleep(time.Duration(20-i) * time.Millisecond)
			return i * i
		})
		if !ok || index != i {
			t.Fatalf("Submit #%d = (%d, %v)", i, index, ok)
		}
	}

	outcomes := pool.Wait()
	if len(outcomes) != 20 {
		t.Fatalf("got %d outcomes, want 20", len(outcomes))
	}
	for i, o := range outcomes {
		if !o.Ran || o.Value != i*i {
			t.Errorf("outcome %d = %+v, want %d", i, o, i*i)
		}
	}
}

func TestPool_BoundsConcurrency(t *testing.T) {
	const workers = 3
	var running, peak atomic.Int32

	pool := NewPool[struct{}](context.Background(), workers)
	pool.Start()
	for i := 0; i < 12; i++ {
		pool.Submit(func(ctx context.Context) struct{} {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
			return struct{}{}
		})
	}
	pool.Wait()

	if got := peak.Load(); got > workers || got == 0 {
		t.Errorf("peak concurrency = %d, want 1..%d", got, workers)
	}
}

func TestPool_SubmitAfterWait(t *testing.T) {
	pool := NewPool[int](context.Background(), 1)
	pool.Start()
	pool.Wait()

	if _, ok := pool.Submit(func(context.Context) int { return 1 }); ok {
		t.Error("Submit succeeded on a closed pool")
	}
}

func TestPool_ShutdownSkipsQueuedTasks(t *testing.T) {
	pool := NewPool[int](context.Background(), 1)
	pool.Start()

	started := make(chan struct{})
	pool.Submit(func(ctx context.Context) int {
		close(started)
		<-ctx.Done()
		return -1
	})
	var ran atomic.Int32
	pool.Submit(func(context.Context) int {
		ran.Add(1)
		return 2
	})

	<-started
	pool.Shutdown()
	if _, ok := pool.Submit(func(context.Context) int { return 3 }); ok {
		t.Error("Submit succeeded after Shutdown")
	}

	outcomes := pool.Wait()
	if len(outcomes) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(outcomes))
	}
	if !outcomes[0].Ran || outcomes[0].Value != -1 {
		t.Errorf("running task outcome = %+v", outcomes[0])
	}
	if outcomes[1].Ran || ran.Load() != 0 {
		t.Errorf("queued task ran after Shutdown: %+v", outcomes[1])
	}
}

func TestPool_ParentContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool[bool](ctx, 2)
	pool.Start()

	pool.Submit(func(ctx context.Context) bool {
		select {
		case <-ctx.Done():
			return true
		case <-time.After(5 * time.Second):
			return false
		}
	})
	cancel()

	done := make(chan []Outcome[bool])
	go func() { done <- pool.Wait() }()

	select {
	case outcomes := <-done:
		if len(outcomes) != 1 {
			t.Fatalf("got %d outcomes, want 1", len(outcomes))
		}
		if outcomes[0].Ran && !outcomes[0].Value {
			t.Error("task did not observe parent cancellation")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after parent cancel")
	}
}
