package match

import (
	"hash/fnv"
	"math"
	"math/rand"
)

// Tunables for the per-tick model. These are deliberately coarse: the
// contract is reproducibility and structural realism, not sporting accuracy.
const (
	ballFriction    = 0.82
	ballPassSpeed   = 6.0
	ballShotSpeed   = 9.0
	possessionReach = 2.0
	tackleReach     = 3.0
	shotRange       = 28.0

	basePlayerStep = 0.9

	staminaFloor     = 0.05
	staminaBaseDrain = 0.00006
	staminaMoveDrain = 0.00009
	halfTimeRecovery = 0.35
	subStaminaLimit  = 0.25

	momentumDecay     = 0.99
	momentumGoalBoost = 0.30
	momentumShotBoost = 0.06
)

type playerState struct {
	ref      Player
	pos      Vector
	stamina  float64
	traveled float64
	booked   bool
	active   bool
}

// Engine owns one match's evolving state and advances it one tick at a
// time. It is not safe for concurrent use; a tick scheduler owns it
// exclusively while the match runs.
type Engine struct {
	job *Job
	rng *rand.Rand

	halfLength  int
	maxStoppage int

	second       int
	phase        Phase
	half         int
	stoppage     [2]int
	stoppageLeft int

	ball    Vector
	ballVel Vector

	possession Side
	possessor  int

	players  [2][]playerState
	tactics  [2]Tactic
	rosters  [2]Roster
	subsUsed [2]int

	score    [2]int
	momentum [2]float64

	shotIntent bool

	events    []Event
	possTicks [2]int
	stats     Statistics
	comms     *commentator
}

// NewEngine validates the job and builds the initial kickoff state. The
// random source is seeded from the job id, never from wall-clock time, so
// identical jobs reproduce byte-identical timelines.
func NewEngine(job *Job, opts ...EngineOption) (*Engine, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		job:         job,
		rng:         rand.New(rand.NewSource(seedFromID(job.ID))), //nolint:gosec // deterministic simulation source
		halfLength:  halfLengthSeconds,
		maxStoppage: maxStoppagePerHalf,
		phase:       PhaseKickoff,
		half:        1,
		possession:  Home,
		tactics:     [2]Tactic{job.HomeTactic, job.AwayTactic},
		rosters:     [2]Roster{job.HomeRoster, job.AwayRoster},
	}

	for _, opt := range opts {
		opt(e)
	}

	for side := range e.players {
		e.players[side] = make([]playerState, 0, len(e.rosters[side].Players))
		for i, p := range e.rosters[side].Players {
			e.players[side] = append(e.players[side], playerState{
				ref:     p,
				stamina: p.Stamina,
				active:  i < startingLineup,
			})
		}
	}

	if job.Opts.EnableCommentary {
		e.comms = newCommentator(e.rng, [2]string{job.HomeRoster.Name, job.AwayRoster.Name})
	}

	e.resetForKickoff(Home)
	return e, nil
}

// seedFromID hashes a job id into a deterministic RNG seed.
func seedFromID(id string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return int64(h.Sum64()) //nolint:gosec // intentional wraparound
}

// Done reports whether the terminal phase was reached.
func (e *Engine) Done() bool { return e.phase == PhaseFullTime }

// Second returns elapsed simulated seconds.
func (e *Engine) Second() int { return e.second }

// CurrentPhase returns the phase after the most recent tick.
func (e *Engine) CurrentPhase() Phase { return e.phase }

// Score returns the running score as [home, away].
func (e *Engine) Score() [2]int { return e.score }

// Events returns the ordered event log accrued so far.
func (e *Engine) Events() []Event { return e.events }

// Stats finalizes and returns the statistics aggregate. Possession
// percentages are derived from per-tick possession counters.
func (e *Engine) Stats() Statistics {
	total := e.possTicks[Home] + e.possTicks[Away]
	if total > 0 {
		e.stats.PossessionPct[Home] = math.Round(float64(e.possTicks[Home])/float64(total)*1000) / 10
		e.stats.PossessionPct[Away] = math.Round(float64(e.possTicks[Away])/float64(total)*1000) / 10
	}
	e.stats.Goals = e.score
	return e.stats
}

// Tick advances the match by one simulated second and returns the
// resulting snapshot plus any events resolved during this tick. A
// returned error is a simulation fault: the match is unusable afterward.
func (e *Engine) Tick() (TickUpdate, []Event, error) {
	if e.phase == PhaseFullTime {
		return TickUpdate{}, nil, fault("tick after full time at second %d", e.second)
	}

	prevSecond := e.second
	e.second++
	eventsBefore := len(e.events)

	switch e.phase {
	case PhaseKickoff:
		e.appendEvent(Event{Second: e.second, Type: EventKickoff, Side: e.possession})
		e.phase = PhaseInPlay
	case PhaseHalfTime:
		// Interval recovery happens exactly once, then the away side of
		// the first kickoff restarts play.
		e.recoverAtInterval()
		e.resetForKickoff(Away)
		e.appendEvent(Event{Second: e.second, Type: EventKickoff, Side: Away})
		e.phase = PhaseInPlay
	case PhaseStoppage:
		e.stoppageLeft--
		if e.stoppageLeft <= 0 {
			e.phase = PhaseInPlay
		}
	case PhaseInPlay:
		e.advancePlay()
	}

	e.applyFatigue()
	e.applyMomentumDecay()
	e.accumulateStats()
	e.evaluateClock()

	update := e.snapshot()
	if err := e.checkInvariants(prevSecond); err != nil {
		return TickUpdate{}, nil, err
	}
	return update, e.events[eventsBefore:], nil
}

// advancePlay runs the in-play portion of a tick: ball kinematics, player
// movement toward tactical targets, and probabilistic event resolution.
func (e *Engine) advancePlay() {
	e.shotIntent = false

	if e.possession == NoSide {
		e.moveLooseBall()
	} else {
		e.actWithBall()
	}

	e.movePlayers()
	e.resolveEvents()
}

// moveLooseBall advances a free ball under friction and bounded-domain
// collision, then lets the nearest player claim it.
func (e *Engine) moveLooseBall() {
	e.ball.X += e.ballVel.X
	e.ball.Y += e.ballVel.Y
	if e.ball.X < 0 || e.ball.X > pitchWidth {
		e.ballVel.X = -e.ballVel.X
	}
	if e.ball.Y < 0 || e.ball.Y > pitchHeight {
		e.ballVel.Y = -e.ballVel.Y
	}
	e.ball = clampPitch(e.ball)
	e.ballVel.X *= ballFriction
	e.ballVel.Y *= ballFriction

	side, idx, dist := e.nearestToBall()
	if dist <= possessionReach {
		e.possession = side
		e.possessor = idx
		e.ballVel = Vector{}
	}
}

// actWithBall picks the possessing player's intent for this tick: shoot
// when in range, otherwise pass or dribble weighted by tempo.
func (e *Engine) actWithBall() {
	holder := &e.players[e.possession][e.possessor]
	e.ball = holder.pos
	goal := goalCenter(e.possession)

	if distance(holder.pos, goal) <= shotRange {
		shootBias := float64(holder.ref.Ratings.Shooting) / 400
		if e.rng.Float64() < 0.04+shootBias {
			e.shotIntent = true
			return
		}
	}

	tempo := e.tactics[e.possession].Tempo
	if e.rng.Float64() < 0.25+0.35*tempo {
		e.passBall(holder)
		return
	}

	// Dribble: carry the ball toward goal, drifting with pitch width.
	dir := attackSign(e.possession)
	holder.pos.X += dir * basePlayerStep * e.speedFactor(holder)
	holder.pos = clampPitch(holder.pos)
	e.ball = holder.pos
	e.ballVel = Vector{X: dir * 1.2}
}

// passBall transfers possession to a teammate, with an interception
// chance scaled by the opponent's pressing and defending.
func (e *Engine) passBall(holder *playerState) {
	mates := e.players[e.possession]
	candidates := make([]int, 0, len(mates))
	for i := range mates {
		if i != e.possessor && mates[i].active {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return
	}
	target := candidates[e.rng.Intn(len(candidates))]
	receiver := &mates[target]

	dx := receiver.pos.X - holder.pos.X
	dy := receiver.pos.Y - holder.pos.Y
	d := math.Max(distance(holder.pos, receiver.pos), 1)
	e.ballVel = Vector{X: dx / d * ballPassSpeed, Y: dy / d * ballPassSpeed}

	opponent := other(e.possession)
	passSkill := float64(holder.ref.Ratings.Passing) / 100
	pressure := e.tactics[opponent].Pressing
	intercept := 0.04 + 0.10*pressure - 0.06*passSkill
	if e.momentumEnabled() {
		intercept -= 0.03 * e.momentum[e.possession]
	}

	if e.rng.Float64() < math.Max(intercept, 0.01) {
		side, idx, _ := e.nearestOpponentToBall(opponent)
		e.possession = side
		e.possessor = idx
		return
	}

	e.stats.Passes[e.possession]++
	e.possessor = target
	e.ball = receiver.pos
}

// movePlayers advances every active player toward a target blended from
// formation shape, ball position, and tactic, scaled by stamina and tempo.
func (e *Engine) movePlayers() {
	for side := Home; side <= Away; side++ {
		shape := formationPositions(e.tactics[side].Formation, side)
		push := mentalityPush(e.tactics[side]) * attackSign(side)
		width := 0.8 + 0.4*e.tactics[side].Width
		slot := 0
		for i := range e.players[side] {
			ps := &e.players[side][i]
			if !ps.active {
				continue
			}
			base := shape[slot%len(shape)]
			slot++

			// Ball attraction is stronger for pressing sides and for
			// players already upfield.
			pull := 0.25 + 0.35*e.tactics[side].Pressing
			target := Vector{
				X: base.X + push + (e.ball.X-base.X)*pull*0.4,
				Y: (base.Y-pitchHeight/2)*width + pitchHeight/2 + (e.ball.Y-base.Y)*pull*0.25,
			}
			target = clampPitch(target)

			step := basePlayerStep * e.speedFactor(ps)
			d := distance(ps.pos, target)
			if d > 0.001 {
				move := math.Min(step, d)
				ps.pos.X += (target.X - ps.pos.X) / d * move
				ps.pos.Y += (target.Y - ps.pos.Y) / d * move
				ps.pos = clampPitch(ps.pos)
				ps.traveled += move
			}
		}
	}
}

// speedFactor scales a player's step by attributes, stamina, and tempo.
func (e *Engine) speedFactor(ps *playerState) float64 {
	speed := float64(ps.ref.Ratings.Speed) / 100
	return (0.5 + 0.5*speed) * (0.5 + 0.5*ps.stamina)
}

// resolveEvents evaluates this tick's candidate events: shots, tackles,
// fouls, cards, injuries, and fatigue substitutions.
func (e *Engine) resolveEvents() {
	if e.shotIntent && e.possession != NoSide {
		e.resolveShot()
		return
	}
	if e.possession != NoSide {
		e.resolveChallenge()
	}
	if e.job.Opts.EnableFatigue {
		e.checkSubstitutions()
	}
}

// resolveShot turns a shot intent into a goal, save, or miss.
func (e *Engine) resolveShot() {
	attacker := e.possession
	defender := other(attacker)
	shooter := &e.players[attacker][e.possessor]

	e.stats.Shots[attacker]++
	e.nudgeMomentum(attacker, momentumShotBoost)

	keeper := e.goalkeeper(defender)
	shooting := float64(shooter.ref.Ratings.Shooting) / 100
	keeping := float64(keeper.ref.Ratings.Defending) / 100
	dist := distance(shooter.pos, goalCenter(attacker))

	pGoal := 0.18 + 0.25*shooting - 0.18*keeping - dist/220
	if e.momentumEnabled() {
		pGoal += 0.08 * e.momentum[attacker]
	}
	pGoal = math.Max(0.02, math.Min(pGoal, 0.75))

	roll := e.rng.Float64()
	switch {
	case roll < pGoal:
		e.score[attacker]++
		e.appendEvent(Event{Second: e.second, Type: EventGoal, Side: attacker, PlayerID: shooter.ref.ID})
		e.appendEvent(Event{Second: e.second, Type: EventShot, Side: attacker, PlayerID: shooter.ref.ID, Detail: "on_target"})
		e.stats.ShotsOnTarget[attacker]++
		e.nudgeMomentum(attacker, momentumGoalBoost)
		e.nudgeMomentum(defender, -momentumGoalBoost*0.6)
		e.resetForKickoff(defender)
	case roll < pGoal+0.3:
		e.stats.ShotsOnTarget[attacker]++
		e.appendEvent(Event{Second: e.second, Type: EventShot, Side: attacker, PlayerID: shooter.ref.ID, Detail: "on_target"})
		e.appendEvent(Event{Second: e.second, Type: EventSave, Side: defender, PlayerID: keeper.ref.ID})
		e.possession = defender
		e.possessor = e.goalkeeperIndex(defender)
		e.ball = e.players[defender][e.possessor].pos
		e.ballVel = Vector{}
	default:
		e.appendEvent(Event{Second: e.second, Type: EventShot, Side: attacker, PlayerID: shooter.ref.ID, Detail: "off_target"})
		e.possession = defender
		e.possessor = e.goalkeeperIndex(defender)
		e.ball = e.players[defender][e.possessor].pos
		e.ballVel = Vector{}
	}
}

// resolveChallenge lets the nearest opponent contest the ball carrier.
func (e *Engine) resolveChallenge() {
	holderSide := e.possession
	opponent := other(holderSide)
	holder := &e.players[holderSide][e.possessor]

	side, idx, dist := e.nearestOpponentToBall(opponent)
	if dist > tackleReach {
		return
	}
	challenger := &e.players[side][idx]

	defending := float64(challenger.ref.Ratings.Defending) / 100
	physical := float64(holder.ref.Ratings.Physicality) / 100
	pressing := e.tactics[opponent].Pressing

	pTackle := 0.05 + 0.12*defending + 0.05*pressing - 0.06*physical
	if e.rng.Float64() < math.Max(pTackle, 0.01) {
		e.stats.Tackles[opponent]++
		e.appendEvent(Event{Second: e.second, Type: EventTackle, Side: opponent, PlayerID: challenger.ref.ID})
		e.possession = side
		e.possessor = idx
		return
	}

	// A failed challenge can concede a foul; fouls escalate into cards
	// and, rarely, a stoppage for an injured carrier.
	if e.rng.Float64() < 0.02 {
		e.stats.Fouls[opponent]++
		e.appendEvent(Event{Second: e.second, Type: EventFoul, Side: opponent, PlayerID: challenger.ref.ID})

		if e.rng.Float64() < 0.25 {
			e.bookPlayer(side, idx, challenger)
		}
		if e.rng.Float64() < 0.08 {
			e.startStoppage(holderSide, holder)
		}
	}
}

// bookPlayer issues a yellow, or a red on the second booking. A sent-off
// player leaves the pitch and cannot be replaced.
func (e *Engine) bookPlayer(side Side, idx int, ps *playerState) {
	e.stats.Cards[side]++
	if ps.booked {
		e.appendEvent(Event{Second: e.second, Type: EventCard, Side: side, PlayerID: ps.ref.ID, Detail: "red"})
		e.players[side][idx].active = false
		e.addStoppageAllowance()
		return
	}
	ps.booked = true
	e.appendEvent(Event{Second: e.second, Type: EventCard, Side: side, PlayerID: ps.ref.ID, Detail: "yellow"})
}

// startStoppage freezes play for a bounded, rng-derived number of ticks
// and adds to the current half's stoppage allowance.
func (e *Engine) startStoppage(side Side, hurt *playerState) {
	e.appendEvent(Event{Second: e.second, Type: EventInjury, Side: side, PlayerID: hurt.ref.ID})
	e.stoppageLeft = 10 + e.rng.Intn(16)
	e.phase = PhaseStoppage
	e.ballVel = Vector{}
	e.addStoppageAllowance()
}

// addStoppageAllowance extends the current half, bounded per half.
func (e *Engine) addStoppageAllowance() {
	h := e.half - 1
	if e.stoppage[h]+secondsPerStoppage <= e.maxStoppage {
		e.stoppage[h] += secondsPerStoppage
	}
}

// checkSubstitutions replaces exhausted starters with bench players.
func (e *Engine) checkSubstitutions() {
	for side := Home; side <= Away; side++ {
		if e.subsUsed[side] >= maxSubstitutions {
			continue
		}
		for i := range e.players[side] {
			ps := &e.players[side][i]
			if !ps.active || ps.stamina > subStaminaLimit {
				continue
			}
			benchIdx := e.firstBenchPlayer(side)
			if benchIdx < 0 {
				return
			}
			sub := &e.players[side][benchIdx]
			sub.active = true
			sub.pos = ps.pos
			ps.active = false
			if side == e.possession && i == e.possessor {
				// The incoming player inherits the ball at the same spot.
				e.possessor = benchIdx
			}
			e.subsUsed[side]++
			e.appendEvent(Event{
				Second:    e.second,
				Type:      EventSubstitution,
				Side:      side,
				PlayerID:  sub.ref.ID,
				PlayerOut: ps.ref.ID,
			})
			// A substitution is also a short recovery window for the
			// rest of the squad.
			break
		}
	}
}

func (e *Engine) firstBenchPlayer(side Side) int {
	for i := startingLineup; i < len(e.players[side]); i++ {
		ps := &e.players[side][i]
		if !ps.active && ps.stamina > subStaminaLimit {
			return i
		}
	}
	return -1
}

// applyFatigue decays stamina monotonically toward an asymptotic floor.
// Recovery happens only at the interval.
func (e *Engine) applyFatigue() {
	if !e.job.Opts.EnableFatigue {
		return
	}
	for side := range e.players {
		for i := range e.players[side] {
			ps := &e.players[side][i]
			if !ps.active {
				continue
			}
			drain := staminaBaseDrain + staminaMoveDrain*math.Min(ps.traveled/float64(e.second+1), 2)
			ps.stamina = staminaFloor + (ps.stamina-staminaFloor)*(1-drain)
		}
	}
}

// recoverAtInterval restores part of the depleted stamina at half time.
func (e *Engine) recoverAtInterval() {
	if !e.job.Opts.EnableFatigue {
		return
	}
	for side := range e.players {
		for i := range e.players[side] {
			ps := &e.players[side][i]
			ps.stamina += (ps.ref.Stamina - ps.stamina) * halfTimeRecovery
		}
	}
}

func (e *Engine) momentumEnabled() bool { return e.job.Opts.EnableMomentum }

// applyMomentumDecay pulls both teams' momentum toward neutral.
func (e *Engine) applyMomentumDecay() {
	if !e.momentumEnabled() {
		return
	}
	e.momentum[Home] *= momentumDecay
	e.momentum[Away] *= momentumDecay
}

func (e *Engine) nudgeMomentum(side Side, delta float64) {
	if !e.momentumEnabled() {
		return
	}
	e.momentum[side] = math.Max(-1, math.Min(1, e.momentum[side]+delta))
}

// accumulateStats updates per-tick aggregates.
func (e *Engine) accumulateStats() {
	if !e.job.Opts.EnableStatistics {
		return
	}
	if e.possession != NoSide && e.phase == PhaseInPlay {
		e.possTicks[e.possession]++
	}
}

// evaluateClock applies time-based phase transitions.
func (e *Engine) evaluateClock() {
	firstHalfEnd := e.halfLength + e.stoppage[0]
	fullEnd := 2*e.halfLength + e.stoppage[0] + e.stoppage[1]

	switch {
	case e.half == 1 && e.second >= firstHalfEnd:
		e.half = 2
		e.phase = PhaseHalfTime
		e.appendEvent(Event{Second: e.second, Type: EventHalfTime})
	case e.half == 2 && e.second >= fullEnd:
		e.phase = PhaseFullTime
		e.appendEvent(Event{Second: e.second, Type: EventFullTime})
	}
}

// resetForKickoff recenters the ball and restores formation shape. The
// given side restarts play.
func (e *Engine) resetForKickoff(restarting Side) {
	e.ball = Vector{X: pitchWidth / 2, Y: pitchHeight / 2}
	e.ballVel = Vector{}
	e.possession = restarting

	for side := Home; side <= Away; side++ {
		shape := formationPositions(e.tactics[side].Formation, side)
		slot := 0
		for i := range e.players[side] {
			ps := &e.players[side][i]
			if !ps.active {
				continue
			}
			ps.pos = shape[slot%len(shape)]
			slot++
		}
	}

	// The most advanced active outfield player takes the kickoff.
	e.possessor = e.lastActiveIndex(restarting)
	e.players[restarting][e.possessor].pos = Vector{X: pitchWidth / 2, Y: pitchHeight / 2}
}

func (e *Engine) lastActiveIndex(side Side) int {
	last := 0
	for i := range e.players[side] {
		if e.players[side][i].active {
			last = i
		}
	}
	return last
}

func (e *Engine) goalkeeperIndex(side Side) int {
	for i := range e.players[side] {
		if e.players[side][i].active {
			return i
		}
	}
	return 0
}

func (e *Engine) goalkeeper(side Side) *playerState {
	return &e.players[side][e.goalkeeperIndex(side)]
}

func (e *Engine) nearestToBall() (Side, int, float64) {
	bestSide, bestIdx, bestDist := Home, 0, math.MaxFloat64
	for side := Home; side <= Away; side++ {
		for i := range e.players[side] {
			ps := &e.players[side][i]
			if !ps.active {
				continue
			}
			if d := distance(ps.pos, e.ball); d < bestDist {
				bestSide, bestIdx, bestDist = side, i, d
			}
		}
	}
	return bestSide, bestIdx, bestDist
}

func (e *Engine) nearestOpponentToBall(side Side) (Side, int, float64) {
	bestIdx, bestDist := 0, math.MaxFloat64
	for i := range e.players[side] {
		ps := &e.players[side][i]
		if !ps.active {
			continue
		}
		if d := distance(ps.pos, e.ball); d < bestDist {
			bestIdx, bestDist = i, d
		}
	}
	return side, bestIdx, bestDist
}

func other(s Side) Side {
	if s == Home {
		return Away
	}
	return Home
}

// appendEvent records an event, attaching commentary when enabled.
func (e *Engine) appendEvent(ev Event) {
	if e.comms != nil {
		ev.Commentary = e.comms.describe(ev)
	}
	e.events = append(e.events, ev)
}

// snapshot projects the current state into an immutable tick update.
func (e *Engine) snapshot() TickUpdate {
	update := TickUpdate{
		Second:     e.second,
		Phase:      e.phase,
		Ball:       e.ball,
		BallVel:    e.ballVel,
		Possession: e.possession,
		Score:      e.score,
	}
	if e.possession != NoSide {
		update.Possessor = e.players[e.possession][e.possessor].ref.ID
	}
	for side := Home; side <= Away; side++ {
		for i := range e.players[side] {
			ps := &e.players[side][i]
			if !ps.active {
				continue
			}
			update.Players = append(update.Players, PlayerSnapshot{
				ID:      ps.ref.ID,
				Side:    side,
				X:       ps.pos.X,
				Y:       ps.pos.Y,
				Stamina: ps.stamina,
			})
		}
	}
	return update
}

// checkInvariants guards the structural contract after each tick.
func (e *Engine) checkInvariants(prevSecond int) error {
	if e.second != prevSecond+1 {
		return fault("elapsed seconds not monotonic: %d -> %d", prevSecond, e.second)
	}
	for side := range e.players {
		for i := range e.players[side] {
			s := e.players[side][i].stamina
			if s < 0 || s > 1 || math.IsNaN(s) {
				return fault("stamina out of range for %s: %f", e.players[side][i].ref.ID, s)
			}
		}
	}
	if len(e.events) > 1 {
		last := e.events[len(e.events)-1]
		prev := e.events[len(e.events)-2]
		if last.Second < prev.Second {
			return fault("event log out of order at second %d", last.Second)
		}
	}
	return nil
}
