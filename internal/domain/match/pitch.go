package match

import "math"

// Pitch dimensions and clock constants. Coordinates run left to right for
// the home team: the home goal sits at x=0, the away goal at x=pitchWidth.
const (
	pitchWidth  = 100.0
	pitchHeight = 64.0

	halfLengthSeconds = 2700 // 45 simulated minutes
	startingLineup    = 11
	maxSubstitutions  = 3

	// Stoppage allowance per half is bounded regardless of how eventful
	// the half was.
	maxStoppagePerHalf = 300 // 5 minutes
	secondsPerStoppage = 30  // each stoppage-causing event adds up to this
)

// Formation position tables, expressed from the defending goal outward.
// Away positions are mirrored across the halfway line.
var formationTables = map[string][]Vector{
	"4-4-2": {
		{5, pitchHeight / 2},
		{20, pitchHeight * 0.2}, {20, pitchHeight * 0.8},
		{25, pitchHeight * 0.1}, {25, pitchHeight * 0.9},
		{40, pitchHeight * 0.25}, {40, pitchHeight * 0.45}, {40, pitchHeight * 0.55}, {40, pitchHeight * 0.75},
		{55, pitchHeight * 0.35}, {55, pitchHeight * 0.65},
	},
	"4-3-3": {
		{5, pitchHeight / 2},
		{20, pitchHeight * 0.2}, {20, pitchHeight * 0.5}, {20, pitchHeight * 0.8},
		{25, pitchHeight * 0.1},
		{40, pitchHeight * 0.3}, {40, pitchHeight * 0.5}, {40, pitchHeight * 0.7},
		{55, pitchHeight * 0.2}, {55, pitchHeight * 0.5}, {55, pitchHeight * 0.8},
	},
	"3-5-2": {
		{5, pitchHeight / 2},
		{20, pitchHeight * 0.25}, {20, pitchHeight * 0.5}, {20, pitchHeight * 0.75},
		{35, pitchHeight * 0.1}, {35, pitchHeight * 0.3}, {35, pitchHeight * 0.5}, {35, pitchHeight * 0.7}, {35, pitchHeight * 0.9},
		{55, pitchHeight * 0.4}, {55, pitchHeight * 0.6},
	},
	"4-2-3-1": {
		{5, pitchHeight / 2},
		{20, pitchHeight * 0.2}, {20, pitchHeight * 0.8},
		{25, pitchHeight * 0.1}, {25, pitchHeight * 0.9},
		{38, pitchHeight * 0.4}, {38, pitchHeight * 0.6},
		{50, pitchHeight * 0.2}, {50, pitchHeight * 0.5}, {50, pitchHeight * 0.8},
		{60, pitchHeight * 0.5},
	},
	"5-3-2": {
		{5, pitchHeight / 2},
		{18, pitchHeight * 0.2}, {18, pitchHeight * 0.4}, {18, pitchHeight * 0.6}, {18, pitchHeight * 0.8},
		{25, pitchHeight * 0.05},
		{40, pitchHeight * 0.3}, {40, pitchHeight * 0.5}, {40, pitchHeight * 0.7},
		{55, pitchHeight * 0.4}, {55, pitchHeight * 0.6},
	},
}

// formationPositions returns the base shape for a formation, mirrored for
// the away side. Unknown formations fall back to 4-4-2.
func formationPositions(formation string, side Side) []Vector {
	table, ok := formationTables[formation]
	if !ok {
		table = formationTables["4-4-2"]
	}
	out := make([]Vector, len(table))
	for i, p := range table {
		if side == Home {
			out[i] = p
			continue
		}
		out[i] = Vector{X: pitchWidth - p.X, Y: pitchHeight - p.Y}
	}
	return out
}

// goalCenter returns the mouth of the goal a side attacks.
func goalCenter(attacking Side) Vector {
	if attacking == Home {
		return Vector{X: pitchWidth, Y: pitchHeight / 2}
	}
	return Vector{X: 0, Y: pitchHeight / 2}
}

func distance(a, b Vector) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

func clampPitch(p Vector) Vector {
	p.X = math.Max(0, math.Min(pitchWidth, p.X))
	p.Y = math.Max(0, math.Min(pitchHeight, p.Y))
	return p
}

// mentalityPush translates a tactic mentality into a forward bias along
// the attack direction, in pitch units.
func mentalityPush(t Tactic) float64 {
	switch t.Mentality {
	case "defensive":
		return -6
	case "attacking":
		return 8
	default:
		return 0
	}
}

// attackSign is +1 when a side attacks toward increasing x.
func attackSign(side Side) float64 {
	if side == Home {
		return 1
	}
	return -1
}
