package achieve

import (
	"testing"
	"time"

	"github.com/seralis/fableforge/internal/model/game"
)

func TestEvaluateFirstAction(t *testing.T) {
	catalog := game.SeedAchievements()
	newly := Evaluate(game.Counters{ActionsTaken: 1}, catalog)

	if len(newly) != 1 || newly[0] != "first-steps" {
		t.Fatalf("unexpected unlocks: %v", newly)
	}
}

func TestEvaluateThresholds(t *testing.T) {
	catalog := game.SeedAchievements()
	counters := game.Counters{
		ActionsTaken:     50,
		LocationsVisited: 5,
		NPCsMet:          15,
		ItemsHeld:        4,
	}

	newly := Evaluate(counters, catalog)

	want := map[string]bool{
		"first-steps":         true,
		"seasoned-adventurer": true,
		"wanderer":            true,
		"friendly-face":       true,
		"social-butterfly":    true,
	}
	if len(newly) != len(want) {
		t.Fatalf("unexpected unlocks: %v", newly)
	}
	for _, id := range newly {
		if !want[id] {
			t.Fatalf("unexpected unlock %q", id)
		}
	}
}

func TestEvaluateIsMonotonicAndIdempotent(t *testing.T) {
	catalog := game.SeedAchievements()
	counters := game.Counters{ActionsTaken: 1}

	first := Evaluate(counters, catalog)
	Unlock(catalog, first, time.Now().UTC())

	second := Evaluate(counters, catalog)
	if len(second) != 0 {
		t.Fatalf("re-evaluation unlocked again: %v", second)
	}

	for _, a := range catalog {
		if a.ID == "first-steps" && !a.Unlocked {
			t.Fatal("unlock state reverted")
		}
	}
}

func TestUnlockKeepsOriginalTimestamp(t *testing.T) {
	catalog := game.SeedAchievements()
	early := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)

	Unlock(catalog, []string{"first-steps"}, early)
	Unlock(catalog, []string{"first-steps"}, late)

	for _, a := range catalog {
		if a.ID != "first-steps" {
			continue
		}
		if a.UnlockedAt == nil || !a.UnlockedAt.Equal(early) {
			t.Fatalf("timestamp overwritten: %v", a.UnlockedAt)
		}
	}
}
