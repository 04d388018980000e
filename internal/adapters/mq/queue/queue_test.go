package queue_test

import (
	"context"
	"sync"
	"testing"
	"time"

	queue "github.com/pitchline/pitchline/internal/adapters/mq/queue"
	. "github.com/smartystreets/goconvey/convey"
)

func receive(t *testing.T, ch <-chan queue.Message) queue.Message {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return queue.Message{}
	}
}

func TestInMemoryQueue(t *testing.T) {
	Convey("Given an in-memory queue", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(4))
		defer func() { _ = q.Close() }()

		Convey("When enqueueing a payload", func() {
			So(q.Enqueue(ctx, []byte("a")), ShouldBeTrue)
			So(q.Len(ctx), ShouldEqual, 1)

			Convey("Then dequeue delivers it with a delivery count of one", func() {
				msg := receive(t, q.Dequeue(ctx))
				So(string(msg.Payload), ShouldEqual, "a")
				So(msg.Deliveries, ShouldEqual, 1)
				So(msg.ID, ShouldNotBeEmpty)

				Convey("And acking removes it for good", func() {
					q.Ack(ctx, msg.ID)
					So(q.Len(ctx), ShouldEqual, 0)
					So(q.DeadLetters(ctx), ShouldBeEmpty)
				})
			})
		})

		Convey("When the queue is full", func() {
			for i := 0; i < 4; i++ {
				So(q.Enqueue(ctx, []byte{byte(i)}), ShouldBeTrue)
			}

			Convey("Then further enqueues are refused without blocking", func() {
				So(q.Enqueue(ctx, []byte("overflow")), ShouldBeFalse)
			})
		})

		Convey("When a message is repeatedly nacked", func() {
			q2 := queue.NewInMemoryQueue(queue.WithCapacity(4), queue.WithMaxRedeliveries(2))
			defer func() { _ = q2.Close() }()

			So(q2.Enqueue(ctx, []byte("poison")), ShouldBeTrue)
			deliveries := q2.Dequeue(ctx)

			msg := receive(t, deliveries)
			So(msg.Deliveries, ShouldEqual, 1)
			q2.Nack(ctx, msg.ID)

			msg = receive(t, deliveries)
			So(msg.Deliveries, ShouldEqual, 2)
			q2.Nack(ctx, msg.ID)

			Convey("Then it is dead-lettered once past the redelivery limit", func() {
				msg = receive(t, deliveries)
				So(msg.Deliveries, ShouldEqual, 3)
				q2.Nack(ctx, msg.ID)

				So(q2.DeadLetters(ctx), ShouldHaveLength, 1)
				So(string(q2.DeadLetters(ctx)[0].Payload), ShouldEqual, "poison")
			})
		})

		Convey("When the queue closes", func() {
			So(q.Close(), ShouldBeNil)
			So(q.IsClosed(), ShouldBeTrue)

			Convey("Then enqueue is refused and close is idempotent", func() {
				So(q.Enqueue(ctx, []byte("late")), ShouldBeFalse)
				So(q.Close(), ShouldBeNil)
			})
		})
	})
}

func TestInMemoryQueueCloseRace(t *testing.T) {
	Convey("Given producers and nackers racing against close", t, func() {
		ctx := context.Background()

		for i := 0; i < 200; i++ {
			q := queue.NewInMemoryQueue(queue.WithCapacity(16), queue.WithMaxRedeliveries(5))
			iterCtx, cancel := context.WithCancel(ctx)

			So(q.Enqueue(ctx, []byte("inflight")), ShouldBeTrue)
			msg := receive(t, q.Dequeue(iterCtx))

			var wg sync.WaitGroup
			wg.Add(3)
			go func() {
				defer wg.Done()
				for j := 0; j < 8; j++ {
					q.Enqueue(ctx, []byte{byte(j)})
				}
			}()
			go func() {
				defer wg.Done()
				q.Nack(ctx, msg.ID)
			}()
			go func() {
				defer wg.Done()
				_ = q.Close()
			}()
			wg.Wait()
			cancel()
		}

		Convey("Then every iteration finishes without a send on a closed channel", func() {
			So(true, ShouldBeTrue)
		})
	})
}
