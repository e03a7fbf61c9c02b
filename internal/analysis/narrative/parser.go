// Package narrative splits raw model replies into story prose and the
// selectable action list. Everything here is a pure transformation over
// strings so it can be unit tested without an engine.
package narrative

import "strings"

// ActionsMarker prefixes the single line of a reply that carries the
// selectable actions, separated by "|".
const ActionsMarker = "ACTIONS:"

// Parsed is the result of splitting one complete model reply.
type Parsed struct {
	Narrative string
	Actions   []string
}

// leakagePhrases are fragments of the narrator instructions. A model that
// echoes its own prompt produces lines containing these; such lines are
// dropped so instructions never reach the visible transcript. Matching is
// case-insensitive substring containment.
var leakagePhrases = []string{
	"you are the narrator",
	"interactive fiction",
	"end every reply with a single line",
	"suggested actions separated by",
	"keep the story consistent",
	"second person present tense",
	strings.ToLower(ActionsMarker),
}

// FallbackActions is used whenever a reply carries no actions line, so the
// player is never left without options.
func FallbackActions() []string {
	return []string{
		"Look around",
		"Continue onward",
		"Check your belongings",
		"Wait and observe",
	}
}

// Parse splits one raw reply into narrative prose and actions. The first
// line starting with the actions marker wins; any later marker line counts
// as ordinary narrative and is then caught by the leakage filter.
func Parse(raw string) Parsed {
	lines := strings.Split(raw, "\n")

	var narrativeLines []string
	var actions []string
	actionsFound := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if !actionsFound && strings.HasPrefix(trimmed, ActionsMarker) {
			actions = splitActions(strings.TrimPrefix(trimmed, ActionsMarker))
			actionsFound = true
			continue
		}

		if containsLeakage(trimmed) {
			continue
		}

		narrativeLines = append(narrativeLines, trimmed)
	}

	if len(actions) == 0 {
		actions = FallbackActions()
	}

	return Parsed{
		Narrative: strings.Join(narrativeLines, "\n"),
		Actions:   actions,
	}
}

func splitActions(rest string) []string {
	parts := strings.Split(rest, "|")
	actions := make([]string, 0, len(parts))
	for _, part := range parts {
		action := strings.TrimSpace(part)
		if action == "" {
			continue
		}
		actions = append(actions, action)
	}
	return actions
}

func containsLeakage(line string) bool {
	lowered := strings.ToLower(line)
	for _, phrase := range leakagePhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}
