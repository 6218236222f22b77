// Package pool wraps ants worker pools with statistics and lifecycle control.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kart-io/logger"
	"github.com/panjf2000/ants/v2"
)

// Pool errors.
var (
	// ErrPoolClosed is returned when submitting to a released pool.
	ErrPoolClosed = errors.New("pool: pool is closed")

	// ErrPoolOverload is returned when a nonblocking pool is full.
	ErrPoolOverload = errors.New("pool: pool is overloaded")
)

// Config defines the configuration for a worker pool.
type Config struct {
	// Capacity is the maximum number of concurrent goroutines.
	Capacity int
	// ExpiryDuration is how long an idle worker survives.
	ExpiryDuration time.Duration
	// Nonblocking makes Submit return ErrPoolOverload instead of waiting.
	Nonblocking bool
	// MaxBlockingTasks caps waiting tasks when Nonblocking is false.
	// Zero means unlimited.
	MaxBlockingTasks int
	// PanicHandler handles panics escaping from tasks.
	PanicHandler func(any)
}

// IndexingPoolConfig returns the configuration for the background indexing
// pool. Blocking submit: a full pool applies backpressure to the dispatcher
// rather than dropping tasks.
func IndexingPoolConfig(workers int) *Config {
	return &Config{
		Capacity:         workers,
		ExpiryDuration:   60 * time.Second,
		Nonblocking:      false,
		MaxBlockingTasks: 0,
	}
}

// BackgroundPoolConfig returns the configuration for housekeeping tasks
// (stuck-task monitoring, cache maintenance).
func BackgroundPoolConfig() *Config {
	return &Config{
		Capacity:         8,
		ExpiryDuration:   60 * time.Second,
		Nonblocking:      true,
		MaxBlockingTasks: 32,
	}
}

// Pool represents a worker pool.
type Pool struct {
	name     string
	pool     *ants.Pool
	config   *Config
	stats    statsCounter
	closed   atomic.Bool
	closedMu sync.Mutex
}

type statsCounter struct {
	SubmittedTasks atomic.Int64
	CompletedTasks atomic.Int64
	FailedTasks    atomic.Int64
	RejectedTasks  atomic.Int64
	PanicRecovered atomic.Int64
}

// Stats contains a snapshot of pool statistics.
type Stats struct {
	SubmittedTasks int64
	CompletedTasks int64
	FailedTasks    int64
	RejectedTasks  int64
	PanicRecovered int64
	Running        int
	Waiting        int
	Capacity       int
}

// NewPool creates a new worker pool with the given configuration.
func NewPool(name string, config *Config) (*Pool, error) {
	if config == nil {
		config = BackgroundPoolConfig()
	}

	p := &Pool{
		name:   name,
		config: config,
	}

	opts := []ants.Option{
		ants.WithExpiryDuration(config.ExpiryDuration),
		ants.WithNonblocking(config.Nonblocking),
		ants.WithMaxBlockingTasks(config.MaxBlockingTasks),
	}
	if config.PanicHandler != nil {
		opts = append(opts, ants.WithPanicHandler(config.PanicHandler))
	} else {
		opts = append(opts, ants.WithPanicHandler(func(r any) {
			logger.Errorw("Worker panic recovered", "pool", name, "panic", r)
		}))
	}

	inner, err := ants.NewPool(config.Capacity, opts...)
	if err != nil {
		return nil, fmt.Errorf("create ants pool: %w", err)
	}
	p.pool = inner

	logger.Infow("Worker pool created", "name", name, "capacity", config.Capacity)
	return p, nil
}

// Name returns the pool name.
func (p *Pool) Name() string {
	return p.name
}

// Running returns the number of currently running workers.
func (p *Pool) Running() int {
	return p.pool.Running()
}

// Waiting returns the number of tasks waiting for a worker.
func (p *Pool) Waiting() int {
	return p.pool.Waiting()
}

// Submit submits a task to the pool.
func (p *Pool) Submit(task func()) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}

	err := p.pool.Submit(func() {
		p.stats.SubmittedTasks.Add(1)
		defer func() {
			if r := recover(); r != nil {
				p.stats.PanicRecovered.Add(1)
				p.stats.FailedTasks.Add(1)
				// Re-panic so the ants panic handler sees it.
				panic(r)
			}
			p.stats.CompletedTasks.Add(1)
		}()
		task()
	})
	if err != nil {
		if errors.Is(err, ants.ErrPoolOverload) {
			p.stats.RejectedTasks.Add(1)
			return ErrPoolOverload
		}
		p.stats.FailedTasks.Add(1)
		return err
	}
	return nil
}

// SubmitWithContext submits a task that is skipped if the context is already
// cancelled when a worker picks it up.
func (p *Pool) SubmitWithContext(ctx context.Context, task func()) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	return p.Submit(func() {
		select {
		case <-ctx.Done():
			return
		default:
			task()
		}
	})
}

// Release closes the pool and releases resources.
func (p *Pool) Release() {
	p.closedMu.Lock()
	defer p.closedMu.Unlock()

	if p.closed.Load() {
		return
	}
	p.closed.Store(true)
	p.pool.Release()
	logger.Infow("Worker pool released", "name", p.name)
}

// ReleaseTimeout closes the pool, waiting up to timeout for in-flight tasks.
func (p *Pool) ReleaseTimeout(timeout time.Duration) error {
	p.closedMu.Lock()
	defer p.closedMu.Unlock()

	if p.closed.Load() {
		return nil
	}
	p.closed.Store(true)
	return p.pool.ReleaseTimeout(timeout)
}

// Stats returns a snapshot of pool statistics.
func (p *Pool) Stats() Stats {
	return Stats{
		SubmittedTasks: p.stats.SubmittedTasks.Load(),
		CompletedTasks: p.stats.CompletedTasks.Load(),
		FailedTasks:    p.stats.FailedTasks.Load(),
		RejectedTasks:  p.stats.RejectedTasks.Load(),
		PanicRecovered: p.stats.PanicRecovered.Load(),
		Running:        p.pool.Running(),
		Waiting:        p.pool.Waiting(),
		Capacity:       p.pool.Cap(),
	}
}
