// Package worker provides an asynchronous worker pool that publishes check
// events to an eventstream.Publisher off the request path.
//
// The pool implements eventstream.Publisher itself, so callers can hand it to
// the scoring pipeline in place of the backend it wraps.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/papercomputeco/overlap/pkg/eventstream"
	"github.com/papercomputeco/overlap/pkg/logger"
)

var (
	defaultNumWorkers     uint = 2
	defaultJobQueueSize   uint = 256
	defaultPublishTimeout      = 5 * time.Second
)

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	Event *eventstream.CheckCompletedEvent
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Publisher is the backend events are forwarded to.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// PublishTimeout bounds each backend publish (defaults to 5s).
	PublishTimeout time.Duration

	Logger *slog.Logger
}

// Pool publishes events asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	// mu guards closed; senders hold it for reading so Close cannot close
	// the queue under them
	mu     sync.RWMutex
	closed bool

	closeOnce sync.Once
	closeErr  error
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Publisher == nil {
		return nil, fmt.Errorf("worker pool requires a publisher")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.PublishTimeout <= 0 {
		c.PublishTimeout = defaultPublishTimeout
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns false if the job was dropped because the queue is full or the pool
// is closed.
func (p *Pool) Enqueue(job Job) bool {
	return p.enqueue(job) == nil
}

// PublishCheck enqueues the event. It never blocks on the backend.
func (p *Pool) PublishCheck(_ context.Context, event *eventstream.CheckCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilCheckEvent
	}
	return p.enqueue(Job{Event: event})
}

func (p *Pool) enqueue(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Warn("event not queued, pool closed", "event_id", job.Event.EventID)
		return eventstream.ErrPublisherClosed
	}

	select {
	case p.queue <- job:
		p.logger.Debug("event queued", "event_id", job.Event.EventID)
		return nil
	default:
		p.logger.Error("event not queued, queue full, event dropped", "event_id", job.Event.EventID)
		return eventstream.ErrQueueFull
	}
}

// Close signals workers to stop, waits for in-flight jobs to drain and then
// closes the wrapped publisher. Call it after the HTTP server has stopped.
func (p *Pool) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()

		p.wg.Wait()
		p.closeErr = p.config.Publisher.Close()
	})
	return p.closeErr
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("worker stopped", "worker_id", id)
}

func (p *Pool) processJob(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.PublishTimeout)
	defer cancel()

	if err := p.config.Publisher.PublishCheck(ctx, job.Event); err != nil {
		p.logger.Warn("failed to publish check event",
			"event_id", job.Event.EventID,
			"error", err,
		)
		return
	}

	p.logger.Debug("check event published", "event_id", job.Event.EventID)
}

var _ eventstream.Publisher = (*Pool)(nil)
