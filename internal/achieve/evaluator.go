// Package achieve evaluates achievement unlock rules. Rules are threshold
// predicates over progress counters; unlock state is monotonic per id.
package achieve

import (
	"time"

	"github.com/seralis/fableforge/internal/model/game"
)

type predicate func(game.Counters) bool

// thresholds maps achievement id to its unlock rule.
var thresholds = map[string]predicate{
	"first-steps":         func(c game.Counters) bool { return c.ActionsTaken >= 1 },
	"wanderer":            func(c game.Counters) bool { return c.LocationsVisited >= 5 },
	"cartographer":        func(c game.Counters) bool { return c.LocationsVisited >= 20 },
	"friendly-face":       func(c game.Counters) bool { return c.NPCsMet >= 5 },
	"social-butterfly":    func(c game.Counters) bool { return c.NPCsMet >= 15 },
	"collector":           func(c game.Counters) bool { return c.ItemsHeld >= 5 },
	"pack-rat":            func(c game.Counters) bool { return c.ItemsHeld >= 15 },
	"seasoned-adventurer": func(c game.Counters) bool { return c.ActionsTaken >= 50 },
	"legend":              func(c game.Counters) bool { return c.ActionsTaken >= 200 },
}

// Evaluate returns the ids of catalog entries whose rule is newly satisfied.
// Already-unlocked entries are skipped, so re-evaluation is a no-op.
func Evaluate(counters game.Counters, catalog []game.Achievement) []string {
	var newly []string
	for _, a := range catalog {
		if a.Unlocked {
			continue
		}
		rule, ok := thresholds[a.ID]
		if !ok {
			continue
		}
		if rule(counters) {
			newly = append(newly, a.ID)
		}
	}
	return newly
}

// Unlock stamps the given ids in the catalog. Unlock is one-way: entries
// already unlocked keep their original timestamp.
func Unlock(catalog []game.Achievement, ids []string, now time.Time) {
	for _, id := range ids {
		for i := range catalog {
			if catalog[i].ID != id || catalog[i].Unlocked {
				continue
			}
			catalog[i].Unlocked = true
			ts := now
			catalog[i].UnlockedAt = &ts
		}
	}
}
