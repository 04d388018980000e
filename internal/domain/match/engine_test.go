package match_test

import (
	"fmt"
	"testing"

	match "github.com/pitchline/pitchline/internal/domain/match"
	. "github.com/smartystreets/goconvey/convey"
)

func testRoster(team string, size int) match.Roster {
	positions := []string{"GK", "RB", "CB", "CB", "LB", "CM", "CM", "CM", "RW", "ST", "LW", "CB", "CM", "ST"}
	players := make([]match.Player, 0, size)
	for i := 0; i < size; i++ {
		players = append(players, match.Player{
			ID:       fmt.Sprintf("%s-%02d", team, i+1),
			Name:     fmt.Sprintf("%s player %d", team, i+1),
			Position: positions[i%len(positions)],
			Number:   i + 1,
			Ratings: match.Attributes{
				Speed:       60 + i%20,
				Shooting:    55 + i%25,
				Passing:     60 + i%20,
				Defending:   55 + i%25,
				Physicality: 60 + i%15,
			},
			Stamina: 1.0,
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
		HomeRoster: testRoster("home", 14),
		AwayRoster: testRoster("away", 14),
		HomeTactic: match.Tactic{Formation: "4-4-2", Mentality: "balanced", Pressing: 0.5, Tempo: 0.5, Width: 0.5},
		AwayTactic: match.Tactic{Formation: "4-3-3", Mentality: "attacking", Pressing: 0.6, Tempo: 0.6, Width: 0.5},
		Env:        match.Environment{Weather: "clear", Venue: "test ground"},
		Opts:       opts,
	}
}

func runToCompletion(e *match.Engine) ([]match.TickUpdate, error) {
	var timeline []match.TickUpdate
	for !e.Done() {
		update, _, err := e.Tick()
		if err != nil {
			return timeline, err
		}
		timeline = append(timeline, update)
	}
	return timeline, nil
}

func TestEngineDeterminism(t *testing.T) {
	Convey("Given two engines built from the same job id", t, func() {
		opts := match.Options{EnableStatistics: true, EnableFatigue: true, EnableMomentum: true, EnableCommentary: true}
		a, err := match.NewEngine(testJob("derby-1", opts), match.WithHalfLength(300))
		So(err, ShouldBeNil)
		b, err := match.NewEngine(testJob("derby-1", opts), match.WithHalfLength(300))
		So(err, ShouldBeNil)

		Convey("When both run to completion", func() {
			ta, errA := runToCompletion(a)
			tb, errB := runToCompletion(b)
			So(errA, ShouldBeNil)
			So(errB, ShouldBeNil)

			Convey("Then the timelines are identical tick for tick", func() {
				So(len(ta), ShouldEqual, len(tb))
				for i := range ta {
					So(ta[i], ShouldResemble, tb[i])
				}
			})

			Convey("And scores, events, and stats agree", func() {
				So(a.Score(), ShouldResemble, b.Score())
				So(a.Events(), ShouldResemble, b.Events())
				So(a.Stats(), ShouldResemble, b.Stats())
			})
		})
	})

	Convey("Given two engines with different job ids", t, func() {
		a, err := match.NewEngine(testJob("derby-1", match.Options{}), match.WithHalfLength(600))
		So(err, ShouldBeNil)
		b, err := match.NewEngine(testJob("derby-2", match.Options{}), match.WithHalfLength(600))
		So(err, ShouldBeNil)

		Convey("Then their runs diverge", func() {
			ta, _ := runToCompletion(a)
			tb, _ := runToCompletion(b)

			diverged := len(ta) != len(tb)
			for i := 0; !diverged && i < len(ta); i++ {
				if ta[i].Ball != tb[i].Ball {
					diverged = true
				}
			}
			So(diverged, ShouldBeTrue)
		})
	})
}

func TestEngineClock(t *testing.T) {
	Convey("Given an engine with stoppage allowance disabled", t, func() {
		e, err := match.NewEngine(testJob("clock-1", match.Options{}),
			match.WithHalfLength(120), match.WithMaxStoppage(0))
		So(err, ShouldBeNil)

		timeline, runErr := runToCompletion(e)
		So(runErr, ShouldBeNil)

		Convey("Then the match lasts exactly two halves of ticks", func() {
			So(len(timeline), ShouldEqual, 240)
			So(e.CurrentPhase(), ShouldEqual, match.PhaseFullTime)
		})

		Convey("And elapsed seconds are strictly monotonic", func() {
			for i := range timeline {
				So(timeline[i].Second, ShouldEqual, i+1)
			}
		})

		Convey("And ticking past full time is a fault", func() {
			_, _, err := e.Tick()
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "full time")
		})
	})

	Convey("Given a completed short match", t, func() {
		e, err := match.NewEngine(testJob("clock-2", match.Options{}),
			match.WithHalfLength(200), match.WithMaxStoppage(0))
		So(err, ShouldBeNil)
		timeline, runErr := runToCompletion(e)
		So(runErr, ShouldBeNil)
		So(timeline, ShouldNotBeEmpty)

		Convey("Then the event log brackets the match correctly", func() {
			events := e.Events()
			So(len(events), ShouldBeGreaterThanOrEqualTo, 3)
			So(events[0].Type, ShouldEqual, match.EventKickoff)
			So(events[len(events)-1].Type, ShouldEqual, match.EventFullTime)

			Convey("And event seconds never decrease", func() {
				for i := 1; i < len(events); i++ {
					So(events[i].Second, ShouldBeGreaterThanOrEqualTo, events[i-1].Second)
				}
			})

			Convey("And exactly one half time marker exists", func() {
				halves := 0
				for _, ev := range events {
					if ev.Type == match.EventHalfTime {
						halves++
					}
				}
				So(halves, ShouldEqual, 1)
			})
		})
	})
}

func TestEngineScore(t *testing.T) {
	Convey("Given a full-length simulated match", t, func() {
		e, err := match.NewEngine(testJob("score-1", match.Options{EnableStatistics: true}))
		So(err, ShouldBeNil)
		_, runErr := runToCompletion(e)
		So(runErr, ShouldBeNil)

		Convey("Then the score equals the goal events per side", func() {
			var goals [2]int
			for _, ev := range e.Events() {
				if ev.Type == match.EventGoal {
					goals[ev.Side]++
				}
			}
			So(e.Score(), ShouldResemble, goals)
		})

		Convey("And shots on target never exceed shots", func() {
			stats := e.Stats()
			So(stats.ShotsOnTarget[match.Home], ShouldBeLessThanOrEqualTo, stats.Shots[match.Home])
			So(stats.ShotsOnTarget[match.Away], ShouldBeLessThanOrEqualTo, stats.Shots[match.Away])
		})

		Convey("And possession percentages cover the match", func() {
			stats := e.Stats()
			total := stats.PossessionPct[match.Home] + stats.PossessionPct[match.Away]
			So(total, ShouldBeBetween, 99.0, 101.0)
		})
	})
}

func TestEngineFatigue(t *testing.T) {
	Convey("Given fatigue disabled", t, func() {
		e, err := match.NewEngine(testJob("fatigue-off", match.Options{}),
			match.WithHalfLength(60), match.WithMaxStoppage(0))
		So(err, ShouldBeNil)
		timeline, runErr := runToCompletion(e)
		So(runErr, ShouldBeNil)

		Convey("Then stamina never changes", func() {
			last := timeline[len(timeline)-1]
			for _, p := range last.Players {
				So(p.Stamina, ShouldEqual, 1.0)
			}
		})
	})

	Convey("Given fatigue enabled over a full match", t, func() {
		e, err := match.NewEngine(testJob("fatigue-on", match.Options{EnableFatigue: true}))
		So(err, ShouldBeNil)
		timeline, runErr := runToCompletion(e)
		So(runErr, ShouldBeNil)

		Convey("Then stamina decays but stays within bounds", func() {
			last := timeline[len(timeline)-1]
			for _, p := range last.Players {
				So(p.Stamina, ShouldBeBetweenOrEqual, 0.0, 1.0)
			}
			sawDrain := false
			for _, p := range last.Players {
				if p.Stamina < 1.0 {
					sawDrain = true
				}
			}
			So(sawDrain, ShouldBeTrue)
		})
	})
}

func TestEngineSubstitutions(t *testing.T) {
	Convey("Given a squad exhausted enough to force substitutions", t, func() {
		job := testJob("tired-legs", match.Options{EnableFatigue: true})
		for i := range job.HomeRoster.Players {
			job.HomeRoster.Players[i].Stamina = 0.251
		}
		for i := range job.AwayRoster.Players {
			job.AwayRoster.Players[i].Stamina = 0.251
		}

		e, err := match.NewEngine(job, match.WithHalfLength(400), match.WithMaxStoppage(0))
		So(err, ShouldBeNil)
		timeline, runErr := runToCompletion(e)
		So(runErr, ShouldBeNil)

		subs := make([]match.Event, 0, 6)
		for _, ev := range e.Events() {
			if ev.Type == match.EventSubstitution {
				subs = append(subs, ev)
			}
		}

		Convey("Then substitutions occur", func() {
			So(len(subs), ShouldBeGreaterThan, 0)
		})

		Convey("And a substituted player never holds the ball afterwards", func() {
			for _, sub := range subs {
				for _, update := range timeline {
					if update.Second < sub.Second {
						continue
					}
					So(update.Possessor, ShouldNotEqual, sub.PlayerOut)
				}
			}
		})
	})
}

func TestEngineCommentary(t *testing.T) {
	Convey("Given commentary enabled", t, func() {
		e, err := match.NewEngine(testJob("comms-1", match.Options{EnableCommentary: true}),
			match.WithHalfLength(400))
		So(err, ShouldBeNil)
		_, runErr := runToCompletion(e)
		So(runErr, ShouldBeNil)

		Convey("Then every event carries a commentary line", func() {
			for _, ev := range e.Events() {
				So(ev.Commentary, ShouldNotBeEmpty)
			}
		})
	})

	Convey("Given commentary disabled", t, func() {
		e, err := match.NewEngine(testJob("comms-2", match.Options{}), match.WithHalfLength(200))
		So(err, ShouldBeNil)
		_, runErr := runToCompletion(e)
		So(runErr, ShouldBeNil)

		Convey("Then events carry no commentary", func() {
			for _, ev := range e.Events() {
				So(ev.Commentary, ShouldBeEmpty)
			}
		})
	})
}

func TestJobValidate(t *testing.T) {
	Convey("Given job validation", t, func() {
		Convey("A well-formed job passes", func() {
			So(testJob("ok", match.Options{}).Validate(), ShouldBeNil)
		})

		Convey("A missing id is rejected", func() {
			job := testJob("", match.Options{})
			err := job.Validate()
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "job id")
		})

		Convey("A short roster is rejected", func() {
			job := testJob("short", match.Options{})
			job.HomeRoster.Players = job.HomeRoster.Players[:10]
			err := job.Validate()
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "11 players")
		})

		Convey("An unknown mode is rejected", func() {
			job := testJob("mode", match.Options{})
			job.Opts.Mode = "turbo"
			So(job.Validate(), ShouldNotBeNil)
		})

		Convey("Realtime without a tick rate is rejected", func() {
			job := testJob("rt", match.Options{Mode: match.ModeRealtime})
			So(job.Validate(), ShouldNotBeNil)

			job.Opts.TickRate = 30
			So(job.Validate(), ShouldBeNil)
		})

		Convey("Out-of-range stamina is rejected", func() {
			job := testJob("stamina", match.Options{})
			job.AwayRoster.Players[3].Stamina = 1.4
			So(job.Validate(), ShouldNotBeNil)
		})
	})
}

func TestParseMode(t *testing.T) {
	Convey("Given mode parsing", t, func() {
		cases := map[string]match.Mode{
			"batch":      match.ModeBatch,
			"REALTIME":   match.ModeRealtime,
			" realtime ": match.ModeRealtime,
		}
		for in, want := range cases {
			mode, ok := match.ParseMode(in)
			So(ok, ShouldBeTrue)
			So(mode, ShouldEqual, want)
		}

		_, ok := match.ParseMode("penalties")
		So(ok, ShouldBeFalse)
	})
}
