package game

import "time"

// AutosaveSlotID is the reserved slot written automatically after each
// successful turn when autosave is enabled.
const AutosaveSlotID = "autosave"

// SaveSlot is the metadata record kept per named save.
type SaveSlot struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	SavedAt      time.Time `json:"savedAt"`
	MessageCount int       `json:"messageCount"`
}
