package worker_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/etaflow/internal/adapters/mq/queue"
	"github.com/okian/etaflow/internal/adapters/mq/worker"
	service "github.com/okian/etaflow/internal/app"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeEstimator struct {
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func (f *fakeEstimator) Run(ctx context.Context, req service.Request) service.Result {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
	}
	return service.Result{Success: req.LoadID != "bad", RunID: "run-" + req.LoadID}
}

type collected struct {
	mu   sync.Mutex
	runs map[string]service.Result
}

func (c *collected) sink(_ context.Context, j queue.Job, res service.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runs[j.ID] = res
}

func TestPool(t *testing.T) {
	ctx := context.Background()

	Convey("Given a pool of three workers over five jobs", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		for _, id := range []string{"a", "b", "c", "bad", "e"} {
			So(q.Enqueue(ctx, queue.Job{ID: id, Request: service.Request{DriverID: "d", LoadID: id}}), ShouldBeNil)
		}

		est := &fakeEstimator{delay: 20 * time.Millisecond}
		out := &collected{runs: map[string]service.Result{}}
		p := worker.NewPool(q, est, out.sink, worker.WithWorkerCount(3))
		p.Start(ctx)
		p.Start(ctx)

		So(p.Shutdown(ctx), ShouldBeNil)

		Convey("Then every job reaches the sink", func() {
			So(out.runs, ShouldHaveLength, 5)
			So(out.runs["a"].RunID, ShouldEqual, "run-a")
			So(out.runs["bad"].Success, ShouldBeFalse)
		})

		Convey("Then jobs ran concurrently within the worker bound", func() {
			So(int(est.peak.Load()), ShouldBeBetweenOrEqual, 2, 3)
		})
	})

	Convey("Given a slow job and a short shutdown budget", t, func() {
		q := queue.NewInMemoryQueue()
		So(q.Enqueue(ctx, queue.Job{ID: "slow", Request: service.Request{LoadID: "slow"}}), ShouldBeNil)

		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		p := worker.NewPool(q, &fakeEstimator{delay: time.Second}, nil, worker.WithWorkerCount(1))
		p.Start(runCtx)
		time.Sleep(10 * time.Millisecond)

		sctx, scancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer scancel()
		err := p.Shutdown(sctx)

		Convey("Then shutdown reports the timeout", func() {
			So(err, ShouldNotBeNil)
			cancel()
			p.Wait()
		})
	})

	Convey("Given a sink that panics", t, func() {
		q := queue.NewInMemoryQueue()
		So(q.Enqueue(ctx, queue.Job{ID: "1"}), ShouldBeNil)
		So(q.Enqueue(ctx, queue.Job{ID: "2"}), ShouldBeNil)

		var seen atomic.Int32
		p := worker.NewPool(q, &fakeEstimator{}, func(context.Context, queue.Job, service.Result) {
			seen.Add(1)
			panic("sink broke")
		}, worker.WithWorkerCount(1))
		p.Start(ctx)

		Convey("Then the worker survives and processes the rest", func() {
			So(p.Shutdown(ctx), ShouldBeNil)
			So(int(seen.Load()), ShouldEqual, 2)
		})
	})
}
