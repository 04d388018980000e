package intake_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	intake "github.com/pitchline/pitchline/internal/adapters/mq/intake"
	"github.com/pitchline/pitchline/internal/adapters/mq/queue"
	"github.com/pitchline/pitchline/internal/domain/match"
	"github.com/pitchline/pitchline/internal/sim/admission"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeAdmitter records submissions and resolves them immediately.
type fakeAdmitter struct {
	mu        sync.Mutex
	submitted []string
	reject    error
}

func (f *fakeAdmitter) Submit(_ context.Context, job *match.Job) (<-chan *match.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reject != nil {
		return nil, f.reject
	}
	f.submitted = append(f.submitted, job.ID)
	ch := make(chan *match.Result, 1)
	ch <- &match.Result{JobID: job.ID, Status: match.StatusCompleted}
	return ch, nil
}

func (f *fakeAdmitter) ids() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.submitted))
	copy(out, f.submitted)
	return out
}

// fakeSink collects stored results.
type fakeSink struct {
	mu      sync.Mutex
	results map[string]*match.Result
}

func newFakeSink() *fakeSink {
	return &fakeSink{results: make(map[string]*match.Result)}
}

func (f *fakeSink) Put(_ context.Context, result *match.Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[result.JobID] = result
	return nil
}

func (f *fakeSink) has(jobID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.results[jobID]
	return ok
}

func validPayload(jobID string) []byte {
	players := make([]map[string]any, 0, 11)
	for i := 0; i < 11; i++ {
		players = append(players, map[string]any{
			"id":      fmt.Sprintf("p-%02d", i+1),
			"name":    fmt.Sprintf("player %d", i+1),
			"number":  i + 1,
			"stamina": 1.0,
			"ratings": map[string]int{"speed": 60, "shooting": 60, "passing": 60, "defending": 60, "physicality": 60},
		})
	}
	payload := map[string]any{
		"job_id":      jobID,
		"home_roster": map[string]any{"team_id": "h", "name": "home", "players": players},
		"away_roster": map[string]any{"team_id": "a", "name": "away", "players": players},
		"home_tactic": map[string]any{"formation": "4-4-2"},
		"away_tactic": map[string]any{"formation": "4-3-3"},
	}
	raw, _ := json.Marshal(payload)
	return raw
}

func eventually(check func() bool) bool {
	deadline := time.After(3 * time.Second)
	for {
		if check() {
			return true
		}
		select {
		case <-deadline:
			return false
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestConsumer(t *testing.T) {
	Convey("Given a running intake consumer", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		q := queue.NewInMemoryQueue(queue.WithCapacity(16), queue.WithMaxRedeliveries(1))
		admitter := &fakeAdmitter{}
		sink := newFakeSink()
		consumer := intake.NewConsumer(q, admitter, sink)

		done := make(chan struct{})
		go func() {
			defer close(done)
			consumer.Run(ctx)
		}()

		cleanup := func() {
			cancel()
			_ = q.Close()
			<-done
		}

		Convey("When a valid payload arrives", func() {
			defer cleanup()
			So(q.Enqueue(ctx, validPayload("job-ok")), ShouldBeTrue)

			Convey("Then the job is admitted, acked, and its result stored", func() {
				So(eventually(func() bool { return sink.has("job-ok") }), ShouldBeTrue)
				So(admitter.ids(), ShouldContain, "job-ok")
				So(q.DeadLetters(ctx), ShouldBeEmpty)
			})
		})

		Convey("When a payload omits its job id", func() {
			defer cleanup()
			So(q.Enqueue(ctx, validPayload("")), ShouldBeTrue)

			Convey("Then one is generated before admission", func() {
				So(eventually(func() bool { return len(admitter.ids()) == 1 }), ShouldBeTrue)
				So(admitter.ids()[0], ShouldNotBeEmpty)
			})
		})

		Convey("When a malformed payload arrives", func() {
			defer cleanup()
			So(q.Enqueue(ctx, []byte("{not json")), ShouldBeTrue)

			Convey("Then it is redelivered a bounded number of times and dead-lettered", func() {
				So(eventually(func() bool { return len(q.DeadLetters(ctx)) == 1 }), ShouldBeTrue)
				So(admitter.ids(), ShouldBeEmpty)
			})
		})

		Convey("When a structurally valid but unsimulatable payload arrives", func() {
			defer cleanup()
			raw, _ := json.Marshal(map[string]any{"job_id": "empty-rosters"})
			So(q.Enqueue(ctx, raw), ShouldBeTrue)

			Convey("Then it is dead-lettered without admission", func() {
				So(eventually(func() bool { return len(q.DeadLetters(ctx)) == 1 }), ShouldBeTrue)
				So(admitter.ids(), ShouldBeEmpty)
			})
		})

		Convey("When admission reports a full backlog", func() {
			defer cleanup()
			admitter.reject = admission.ErrBacklogFull
			So(q.Enqueue(ctx, validPayload("job-busy")), ShouldBeTrue)

			Convey("Then the message is nacked for redelivery, not acked", func() {
				So(eventually(func() bool { return len(q.DeadLetters(ctx)) == 1 }), ShouldBeTrue)
				So(sink.has("job-busy"), ShouldBeFalse)
			})
		})
	})
}

func TestConsumerShutdown(t *testing.T) {
	Convey("Given a running consumer", t, func() {
		q := queue.NewInMemoryQueue()
		consumer := intake.NewConsumer(q, &fakeAdmitter{}, newFakeSink())

		go consumer.Run(context.Background())

		Convey("When Shutdown is called", func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			So(consumer.Shutdown(ctx), ShouldBeNil)
			_ = q.Close()
		})
	})
}
