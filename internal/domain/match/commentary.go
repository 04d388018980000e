package match

import (
	"fmt"
	"math/rand"
	"strings"
)

// commentator turns events into display text. Phrase selection draws from
// the match RNG so commentary is as reproducible as the rest of the output.
type commentator struct {
	rng   *rand.Rand
	teams [2]string
}

var commentaryTemplates = map[EventType][]string{
	EventKickoff: {
		"%[1]s get us underway",
		"The referee blows and %[1]s kick off",
	},
	EventGoal: {
		"GOAL! %[2]s finds the net for %[1]s!",
		"What a finish from %[2]s! %[1]s celebrate!",
		"%[2]s scores! The %[1]s bench erupts!",
	},
	EventShot: {
		"%[2]s lets fly for %[1]s",
		"A strike from %[2]s",
	},
	EventSave: {
		"Brilliant stop by %[2]s!",
		"%[2]s gets down well to deny the effort",
	},
	EventFoul: {
		"%[2]s catches his man late, free kick",
		"Cynical challenge from %[2]s",
	},
	EventCard: {
		"The referee reaches for his pocket, %[2]s goes into the book",
	},
	EventTackle: {
		"%[2]s wins it back cleanly for %[1]s",
	},
	EventInjury: {
		"%[2]s is down and needs treatment, play is halted",
	},
	EventSubstitution: {
		"Change for %[1]s: %[2]s comes on",
	},
	EventHalfTime: {
		"The referee signals the interval",
	},
	EventFullTime: {
		"Full time, that's all",
	},
}

func newCommentator(rng *rand.Rand, teams [2]string) *commentator {
	return &commentator{rng: rng, teams: teams}
}

func (c *commentator) describe(ev Event) string {
	phrases, ok := commentaryTemplates[ev.Type]
	if !ok {
		return ""
	}
	phrase := phrases[c.rng.Intn(len(phrases))]
	if !strings.Contains(phrase, "%") {
		return phrase
	}
	team := ""
	if ev.Side == Home || ev.Side == Away {
		team = c.teams[ev.Side]
	}
	who := ev.PlayerID
	if who == "" {
		who = team
	}
	return fmt.Sprintf(phrase, team, who)
}
