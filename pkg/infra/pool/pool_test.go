package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSubmitRunsTask(t *testing.T) {
	p, err := NewPool("test", IndexingPoolConfig(2))
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer p.Release()

	var done atomic.Bool
	var wg sync.WaitGroup
	wg.Add(1)
	if err := p.Submit(func() {
		done.Store(true)
		wg.Done()
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	wg.Wait()

	if !done.Load() {
		t.Fatal("task did not run")
	}
}

func TestSubmitAfterRelease(t *testing.T) {
	p, err := NewPool("test", IndexingPoolConfig(1))
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	p.Release()

	if err := p.Submit(func() {}); err != ErrPoolClosed {
		t.Fatalf("Submit after release = %v, want ErrPoolClosed", err)
	}
}

func TestSubmitWithContextCancelled(t *testing.T) {
	p, err := NewPool("test", IndexingPoolConfig(1))
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer p.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := p.SubmitWithContext(ctx, func() {
		t.Error("task should not run with cancelled context")
	}); err != context.Canceled {
		t.Fatalf("SubmitWithContext = %v, want context.Canceled", err)
	}
}

func TestStatsCounting(t *testing.T) {
	p, err := NewPool("test", IndexingPoolConfig(2))
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer p.Release()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		if err := p.Submit(func() { wg.Done() }); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	wg.Wait()

	// Counters update inside the worker; give them a moment.
	deadline := time.Now().Add(time.Second)
	for {
		s := p.Stats()
		if s.CompletedTasks == 5 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("CompletedTasks = %d, want 5", s.CompletedTasks)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNonblockingOverload(t *testing.T) {
	cfg := &Config{
		Capacity:       1,
		ExpiryDuration: time.Second,
		Nonblocking:    true,
	}
	p, err := NewPool("test", cfg)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer p.Release()

	block := make(chan struct{})
	defer close(block)
	if err := p.Submit(func() { <-block }); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// Wait for the worker to occupy the single slot.
	deadline := time.Now().Add(time.Second)
	for p.Running() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("worker never started")
		}
		time.Sleep(time.Millisecond)
	}

	if err := p.Submit(func() {}); err != ErrPoolOverload {
		t.Fatalf("Submit on full pool = %v, want ErrPoolOverload", err)
	}
	if p.Stats().RejectedTasks != 1 {
		t.Fatalf("RejectedTasks = %d, want 1", p.Stats().RejectedTasks)
	}
}
