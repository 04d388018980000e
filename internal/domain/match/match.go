// Package match contains the match state machine and the domain model
// passed between layers: jobs, rosters, tick updates, events, and results.
package match

import (
	"strings"
	"time"
)

// Side identifies one of the two teams in a match.
type Side int

const (
	// Home is index 0 in all per-team arrays.
	Home Side = iota
	// Away is index 1 in all per-team arrays.
	Away
	// NoSide marks a dead ball with no possession.
	NoSide Side = -1
)

// Mode selects how the scheduler drives a simulation.
type Mode string

const (
	// ModeBatch advances ticks back-to-back and returns on completion.
	ModeBatch Mode = "batch"
	// ModeRealtime paces ticks at 1/tickRate wall-clock intervals.
	ModeRealtime Mode = "realtime"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeBatch:
		return ModeBatch, true
	case ModeRealtime:
		return ModeRealtime, true
	}
	return "", false
}

// Phase describes where the match clock stands.
type Phase string

const (
	PhaseKickoff  Phase = "kickoff"
	PhaseInPlay   Phase = "in_play"
	PhaseStoppage Phase = "stoppage"
	PhaseHalfTime Phase = "half_time"
	PhaseFullTime Phase = "full_time"
)

// Attributes holds per-player ability ratings on a 1-100 scale.
type Attributes struct {
	Speed       int `json:"speed"`
	Shooting    int `json:"shooting"`
	Passing     int `json:"passing"`
	Defending   int `json:"defending"`
	Physicality int `json:"physicality"`
}

// Player is an immutable roster entry.
type Player struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Position string     `json:"position"` // GK, CB, LB, RB, CDM, CM, CAM, LW, RW, ST
	Number   int        `json:"number"`
	Ratings  Attributes `json:"ratings"`
	// Stamina is the starting stamina in [0,1].
	Stamina float64 `json:"stamina"`
}

// Tactic configures a team's shape and behaviour for the whole match.
type Tactic struct {
	Formation string  `json:"formation"` // e.g. "4-4-2"
	Mentality string  `json:"mentality"` // defensive, balanced, attacking
	Pressing  float64 `json:"pressing"`  // 0..1
	Tempo     float64 `json:"tempo"`     // 0..1
	Width     float64 `json:"width"`     // 0..1
}

// Roster is the immutable team input: players plus identity.
type Roster struct {
	TeamID  string   `json:"team_id"`
	Name    string   `json:"name"`
	Players []Player `json:"players"`
}

// Environment carries non-tactical match context.
type Environment struct {
	Weather string `json:"weather"`
	Venue   string `json:"venue"`
}

// Options enumerates the per-job feature switches.
type Options struct {
	Mode             Mode `json:"mode"`
	TickRate         int  `json:"tick_rate"`
	EnableCommentary bool `json:"enable_commentary"`
	EnableStatistics bool `json:"enable_statistics"`
	EnableFatigue    bool `json:"enable_fatigue"`
	EnableMomentum   bool `json:"enable_momentum"`
}

// Job is an immutable simulation request.
type Job struct {
	ID         string      `json:"id"`
	HomeRoster Roster      `json:"home_roster"`
	AwayRoster Roster      `json:"away_roster"`
	HomeTactic Tactic      `json:"home_tactic"`
	AwayTactic Tactic      `json:"away_tactic"`
	Env        Environment `json:"environment"`
	Opts       Options     `json:"options"`
}

// Validate checks the job is simulatable. It returns ErrInvalidJob-wrapped
// errors so intake layers can classify rejections.
func (j *Job) Validate() error {
	switch {
	case strings.TrimSpace(j.ID) == "":
		return invalid("missing job id")
	case len(j.HomeRoster.Players) < startingLineup:
		return invalid("home roster needs at least 11 players")
	case len(j.AwayRoster.Players) < startingLineup:
		return invalid("away roster needs at least 11 players")
	}
	if _, ok := ParseMode(string(j.Opts.Mode)); !ok {
		return invalid("mode must be batch or realtime")
	}
	if j.Opts.Mode == ModeRealtime && j.Opts.TickRate < 1 {
		return invalid("realtime jobs need a positive tick_rate")
	}
	for _, r := range []Roster{j.HomeRoster, j.AwayRoster} {
		for i := range r.Players {
			if s := r.Players[i].Stamina; s < 0 || s > 1 {
				return invalid("player stamina must be in [0,1]")
			}
		}
	}
	return nil
}

// Vector is a 2D point or velocity on the pitch.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PlayerSnapshot is one player's slice of a TickUpdate.
type PlayerSnapshot struct {
	ID      string  `json:"id"`
	Side    Side    `json:"side"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Stamina float64 `json:"stamina"`
}

// TickUpdate is the immutable projection of match state after one tick.
// The ordered sequence of updates across a match is the timeline.
type TickUpdate struct {
	Second     int              `json:"second"`
	Phase      Phase            `json:"phase"`
	Ball       Vector           `json:"ball"`
	BallVel    Vector           `json:"ball_velocity"`
	Possession Side             `json:"possession"`
	Possessor  string           `json:"possessor,omitempty"`
	Score      [2]int           `json:"score"`
	Players    []PlayerSnapshot `json:"players"`
}

// EventType enumerates discrete match events.
type EventType string

const (
	EventKickoff      EventType = "kickoff"
	EventGoal         EventType = "goal"
	EventShot         EventType = "shot"
	EventSave         EventType = "save"
	EventFoul         EventType = "foul"
	EventCard         EventType = "card"
	EventTackle       EventType = "tackle"
	EventInjury       EventType = "injury"
	EventSubstitution EventType = "substitution"
	EventHalfTime     EventType = "half_time"
	EventFullTime     EventType = "full_time"
)

// Event is an immutable record appended to the event log, strictly
// non-decreasing in Second.
type Event struct {
	Second     int       `json:"second"`
	Type       EventType `json:"type"`
	Side       Side      `json:"side"`
	PlayerID   string    `json:"player_id,omitempty"`
	PlayerOut  string    `json:"player_out,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	Commentary string    `json:"commentary,omitempty"`
}

// Statistics is the running aggregate derived from events and possession.
type Statistics struct {
	PossessionPct [2]float64 `json:"possession_pct"`
	Shots         [2]int     `json:"shots"`
	ShotsOnTarget [2]int     `json:"shots_on_target"`
	Goals         [2]int     `json:"goals"`
	Fouls         [2]int     `json:"fouls"`
	Cards         [2]int     `json:"cards"`
	Passes        [2]int     `json:"passes"`
	Tackles       [2]int     `json:"tackles"`
}

// Status reports how a job ended.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Result is the full output handed to whatever awaits the job.
type Result struct {
	JobID          string        `json:"job_id"`
	Status         Status        `json:"status"`
	Score          [2]int        `json:"score"`
	Timeline       []TickUpdate  `json:"timeline"`
	Events         []Event       `json:"events"`
	Stats          Statistics    `json:"stats"`
	WallDuration   time.Duration `json:"wall_duration_ns"`
	TicksPerSecond float64       `json:"ticks_per_second"`
	Err            string        `json:"error,omitempty"`
}
