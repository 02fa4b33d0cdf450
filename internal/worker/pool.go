// Package worker runs deferred post-response tasks off the request path.
//
// A chat turn returns its reply before the assistant message is persisted;
// the persist step is queued here and drained on shutdown.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"
)

var (
	defaultNumWorkers   uint = 3
	defaultQueueSize    uint = 256
	defaultMaxAttempts       = 3
	defaultBaseBackoff       = 200 * time.Millisecond
	maxBackoff               = 5 * time.Second
)

// Job is a unit of deferred work.
type Job struct {
	// Name identifies the job in logs.
	Name string
	Run  func(ctx context.Context) error
}

// Config is the configuration of the pool.
type Config struct {
	// NumWorkers is the number of background workers (defaults to 3).
	NumWorkers uint
	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint
	// MaxAttempts bounds retries of a failing job (defaults to 3).
	MaxAttempts int
	// BaseBackoff is the first retry delay; it doubles per attempt.
	BaseBackoff time.Duration
	// Timeout bounds one attempt. Zero means no timeout.
	Timeout time.Duration
}

// Pool executes jobs asynchronously.
type Pool struct {
	config Config
	queue  chan Job
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewPool creates a pool and starts its workers.
func NewPool(c Config) (*Pool, error) {
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultQueueSize
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = defaultBaseBackoff
	}
	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	p := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
	}
	p.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go p.worker(i)
	}
	return p, nil
}

// Enqueue submits a job. It returns false when the queue is full or the pool
// is closed, in which case the job is dropped.
func (p *Pool) Enqueue(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		slog.Error("job not queued, pool closed", "job", job.Name)
		return false
	}

	select {
	case p.queue <- job:
		slog.Debug("job queued", "job", job.Name)
		return true
	default:
		slog.Error("job not queued, queue full, job dropped", "job", job.Name)
		return false
	}
}

// Close stops accepting jobs and waits for queued ones to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	slog.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.process(job)
	}

	slog.Debug("worker stopped", "worker_id", id)
}

func (p *Pool) process(job Job) {
	backoff := p.config.BaseBackoff
	for attempt := 1; ; attempt++ {
		err := p.attempt(job)
		if err == nil {
			return
		}
		if attempt >= p.config.MaxAttempts {
			slog.Error("job failed, giving up", "job", job.Name, "attempts", attempt, "error", err.Error())
			return
		}
		slog.Warn("job failed, retrying", "job", job.Name, "attempt", attempt, "backoff", backoff, "error", err.Error())
		time.Sleep(backoff)
		backoff = min(backoff*2, maxBackoff)
	}
}

func (p *Pool) attempt(job Job) (err error) {
	ctx := context.Background()
	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return job.Run(ctx)
}
