package queue_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/etaflow/internal/adapters/mq/queue"
	service "github.com/okian/etaflow/internal/app"
	. "github.com/smartystreets/goconvey/convey"
)

func job(id string) queue.Job {
	return queue.Job{ID: id, Request: service.Request{DriverID: "d-" + id, LoadID: "l-" + id}}
}

func TestInMemoryQueue(t *testing.T) {
	ctx := context.Background()

	Convey("Given a queue with capacity two", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(2))

		So(q.Enqueue(ctx, job("1")), ShouldBeNil)
		So(q.Enqueue(ctx, job("2")), ShouldBeNil)

		Convey("Then a third job is refused without blocking", func() {
			So(errors.Is(q.Enqueue(ctx, job("3")), queue.ErrFull), ShouldBeTrue)
			So(q.Len(), ShouldEqual, 2)
		})

		Convey("Then jobs come out in order", func() {
			So((<-q.Dequeue()).ID, ShouldEqual, "1")
			So((<-q.Dequeue()).ID, ShouldEqual, "2")
			So(q.Len(), ShouldEqual, 0)
		})

		Convey("When the queue is closed", func() {
			So(q.Close(), ShouldBeNil)
			So(q.Close(), ShouldBeNil)

			Convey("Then new jobs are refused", func() {
				So(q.IsClosed(), ShouldBeTrue)
				So(errors.Is(q.Enqueue(ctx, job("4")), queue.ErrClosed), ShouldBeTrue)
			})

			Convey("Then queued jobs drain before the channel closes", func() {
				var ids []string
				for j := range q.Dequeue() {
					ids = append(ids, j.ID)
				}
				So(ids, ShouldResemble, []string{"1", "2"})
			})
		})
	})

	Convey("Given a cancelled context", t, func() {
		q := queue.NewInMemoryQueue()
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		Convey("Then enqueue reports the cancellation", func() {
			So(errors.Is(q.Enqueue(cctx, job("1")), context.Canceled), ShouldBeTrue)
		})
	})
}
