package session

import (
	"fmt"

	"github.com/seralis/fableforge/internal/model/game"
)

// detailInstructions interpolates the detail-level setting into the
// narrator instructions.
var detailInstructions = map[game.DetailLevel]string{
	game.DetailBrief:    "Keep each scene to two or three sentences.",
	game.DetailNormal:   "Describe each scene in a short paragraph.",
	game.DetailDetailed: "Describe each scene richly, with sensory detail, in up to three paragraphs.",
}

// toneInstructions interpolates the tone setting.
var toneInstructions = map[game.Tone]string{
	game.ToneSerious:   "The tone is grave and dramatic.",
	game.ToneBalanced:  "The tone balances drama with lighter moments.",
	game.ToneWhimsical: "The tone is playful and whimsical.",
}

// BuildSystemPrompt renders the narrator instructions from the current
// settings. The narrative parser's leakage filter keys off fragments of this
// text, so changes here must stay in step with that phrase list.
func BuildSystemPrompt(settings game.Settings) string {
	settings = settings.Normalize()
	return fmt.Sprintf(`You are the narrator of an interactive fiction adventure. Write in second person present tense. %s %s Keep the story consistent with everything established so far.
End every reply with a single line starting with %q followed by two to four suggested actions separated by "|".`,
		detailInstructions[settings.DetailLevel],
		toneInstructions[settings.Tone],
		"ACTIONS:",
	)
}

// openingInstruction is the first user turn of every new game.
const openingInstruction = "Begin a new adventure. Set the opening scene and offer my first choices."
