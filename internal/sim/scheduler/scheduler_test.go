package scheduler_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pitchline/pitchline/internal/domain/match"
	scheduler "github.com/pitchline/pitchline/internal/sim/scheduler"
	. "github.com/smartystreets/goconvey/convey"
)

func testRoster(team string) match.Roster {
	players := make([]match.Player, 0, 12)
	for i := 0; i < 12; i++ {
		players = append(players, match.Player{
			ID:       fmt.Sprintf("%s-%02d", team, i+1),
			Name:     fmt.Sprintf("%s %d", team, i+1),
			Position: "CM",
			Number:   i + 1,
			Ratings:  match.Attributes{Speed: 70, Shooting: 60, Passing: 65, Defending: 60, Physicality: 65},
			Stamina:  1.0,
		})
	}
	return match.Roster{TeamID: team, Name: team, Players: players}
}

func testJob(id string, opts match.Options) *match.Job {
	if opts.Mode == "" {
		opts.Mode = match.ModeBatch
	}
	return &match.Job{
		ID:         id,
		HomeRoster: testRoster("home"),
		AwayRoster: testRoster("away"),
		HomeTactic: match.Tactic{Formation: "4-4-2", Mentality: "balanced", Pressing: 0.5, Tempo: 0.5, Width: 0.5},
		AwayTactic: match.Tactic{Formation: "4-3-3", Mentality: "balanced", Pressing: 0.5, Tempo: 0.5, Width: 0.5},
		Opts:       opts,
	}
}

// recordingPublisher captures everything published for assertions.
type recordingPublisher struct {
	mu       sync.Mutex
	ticks    []match.TickUpdate
	events   []match.Event
	terminal match.Status
	complete bool
}

func (p *recordingPublisher) Publish(_ string, update match.TickUpdate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ticks = append(p.ticks, update)
}

func (p *recordingPublisher) PublishEvents(_ string, events []match.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
}

func (p *recordingPublisher) Complete(_ string, status match.Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.complete = true
	p.terminal = status
}

func TestSchedulerBatch(t *testing.T) {
	Convey("Given a batch scheduler over a short match", t, func() {
		pub := &recordingPublisher{}
		s, err := scheduler.New(testJob("batch-1", match.Options{}),
			scheduler.WithPublisher(pub),
			scheduler.WithEngineOptions(match.WithHalfLength(100), match.WithMaxStoppage(0)),
		)
		So(err, ShouldBeNil)

		Convey("When it runs to completion", func() {
			result := s.Run(context.Background())

			Convey("Then the result is complete and carries the full timeline", func() {
				So(result.Status, ShouldEqual, match.StatusCompleted)
				So(len(result.Timeline), ShouldEqual, 200)
				So(result.JobID, ShouldEqual, "batch-1")
				So(result.Err, ShouldBeEmpty)
				So(result.TicksPerSecond, ShouldBeGreaterThan, 0)
			})

			Convey("And every tick was published in order before the terminal marker", func() {
				So(len(pub.ticks), ShouldEqual, 200)
				for i := range pub.ticks {
					So(pub.ticks[i].Second, ShouldEqual, i+1)
				}
				So(pub.complete, ShouldBeTrue)
				So(pub.terminal, ShouldEqual, match.StatusCompleted)
			})

			Convey("And published events match the result's event log", func() {
				So(pub.events, ShouldResemble, result.Events)
			})
		})
	})

	Convey("Given an invalid job", t, func() {
		job := testJob("bad", match.Options{})
		job.HomeRoster.Players = nil

		Convey("Then the scheduler refuses to build", func() {
			_, err := scheduler.New(job)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestSchedulerCancellation(t *testing.T) {
	Convey("Given a realtime scheduler", t, func() {
		s, err := scheduler.New(testJob("rt-1", match.Options{Mode: match.ModeRealtime, TickRate: 20}),
			scheduler.WithEngineOptions(match.WithHalfLength(3600), match.WithMaxStoppage(0)),
		)
		So(err, ShouldBeNil)

		Convey("When the context is cancelled mid-match", func() {
			ctx, cancel := context.WithCancel(context.Background())
			go func() {
				time.Sleep(250 * time.Millisecond)
				cancel()
			}()
			result := s.Run(ctx)

			Convey("Then the result is cancelled with a partial timeline", func() {
				So(result.Status, ShouldEqual, match.StatusCancelled)
				So(len(result.Timeline), ShouldBeLessThan, 7200)
			})

			Convey("And the timeline stops at a tick boundary", func() {
				for i := range result.Timeline {
					So(result.Timeline[i].Second, ShouldEqual, i+1)
				}
			})
		})
	})
}

func TestSchedulerRealtimePacing(t *testing.T) {
	Convey("Given a realtime scheduler at a known tick rate", t, func() {
		s, err := scheduler.New(testJob("rt-2", match.Options{Mode: match.ModeRealtime, TickRate: 50}),
			scheduler.WithEngineOptions(match.WithHalfLength(10), match.WithMaxStoppage(0)),
		)
		So(err, ShouldBeNil)

		Convey("When it runs to completion", func() {
			start := time.Now()
			result := s.Run(context.Background())
			elapsed := time.Since(start)

			Convey("Then wall time reflects the pacing interval", func() {
				So(result.Status, ShouldEqual, match.StatusCompleted)
				So(len(result.Timeline), ShouldEqual, 20)
				// 20 ticks at 50/s is 400ms of pacing.
				So(elapsed, ShouldBeGreaterThan, 300*time.Millisecond)
			})
		})
	})
}
