// Package worker runs queued estimate jobs through the pipeline.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"

	"github.com/okian/etaflow/internal/adapters/mq/queue"
	service "github.com/okian/etaflow/internal/app"
	"github.com/okian/etaflow/pkg/logger"
	"github.com/okian/etaflow/pkg/metrics"
)

// Estimator runs one pipeline invocation.
type Estimator interface {
	Run(ctx context.Context, req service.Request) service.Result
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue() <-chan queue.Job
}

// Sink receives every finished job. It is called from worker goroutines and
// must be safe for concurrent use.
type Sink func(ctx context.Context, j queue.Job, res service.Result)

// Pool manages a fixed set of workers draining one queue.
type Pool struct {
	queue       Queue
	est         Estimator
	sink        Sink
	workerCount int
	logger      logger.Logger

	wg      sync.WaitGroup
	once    sync.Once
	started bool
	mu      sync.Mutex
}

// NewPool creates a new worker pool. The default size is runtime.NumCPU().
func NewPool(q Queue, est Estimator, sink Sink, opts ...Option) *Pool {
	p := &Pool{
		queue:       q,
		est:         est,
		sink:        sink,
		workerCount: runtime.NumCPU(),
		logger:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the workers. They run until the queue is closed and drained
// or ctx is cancelled.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	metrics.UpdateWorkersActive(p.workerCount)
	p.wg.Add(p.workerCount)
	for i := 0; i < p.workerCount; i++ {
		log := p.logger.Named("worker-" + strconv.Itoa(i))
		go p.run(ctx, log)
	}
}

func (p *Pool) run(ctx context.Context, log logger.Logger) {
	defer p.wg.Done()

	jobs := p.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			p.process(ctx, log, j)
		}
	}
}

// process runs one job. A panic in the sink is logged and the worker keeps
// going.
func (p *Pool) process(ctx context.Context, log logger.Logger, j queue.Job) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordBatchJob(false)
			log.Error(ctx, "job panicked", logger.String("job_id", j.ID), logger.Any("panic", r))
		}
	}()

	res := p.est.Run(ctx, j.Request)
	metrics.RecordBatchJob(res.Success)
	if !res.Success {
		log.Warn(ctx, "job failed",
			logger.String("job_id", j.ID),
			logger.String("run_id", res.RunID),
			logger.String("error", res.ErrorMessage))
	}
	if p.sink != nil {
		p.sink(ctx, j, res)
	}
}

// Wait blocks until every worker has exited.
func (p *Pool) Wait() {
	p.wg.Wait()
	p.once.Do(func() { metrics.UpdateWorkersActive(0) })
}

// Shutdown closes the queue if it can be closed and waits for the workers to
// drain it, giving up when ctx expires.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		p.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		p.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}
