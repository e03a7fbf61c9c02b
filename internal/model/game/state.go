package game

import "time"

// DisplayEntry is one line of the user-facing transcript. The display log is
// a superset of the conversation: it also carries decorative and error lines
// that are never sent to the model.
type DisplayEntry struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// SessionState is the unit of save/restore and of undo snapshotting.
type SessionState struct {
	DisplayLog     []DisplayEntry `json:"displayLog"`
	Conversation   []Message      `json:"conversation"`
	CurrentActions []string       `json:"currentActions"`
}

// Clone returns a deep copy so the live state stays independently mutable
// after a snapshot is taken.
func (s SessionState) Clone() SessionState {
	out := SessionState{
		DisplayLog:     make([]DisplayEntry, len(s.DisplayLog)),
		Conversation:   make([]Message, len(s.Conversation)),
		CurrentActions: make([]string, len(s.CurrentActions)),
	}
	copy(out.DisplayLog, s.DisplayLog)
	copy(out.Conversation, s.Conversation)
	copy(out.CurrentActions, s.CurrentActions)
	return out
}

// TrackedEntities holds the append-only discovery sets maintained by the
// narrative scanner. Dedup is by exact string equality on the captured text.
type TrackedEntities struct {
	Locations []string `json:"locations"`
	NPCs      []string `json:"npcs"`
	Items     []string `json:"items"`
}

// Clone deep-copies the tracked sets.
func (t TrackedEntities) Clone() TrackedEntities {
	out := TrackedEntities{
		Locations: make([]string, len(t.Locations)),
		NPCs:      make([]string, len(t.NPCs)),
		Items:     make([]string, len(t.Items)),
	}
	copy(out.Locations, t.Locations)
	copy(out.NPCs, t.NPCs)
	copy(out.Items, t.Items)
	return out
}

// Recent returns at most n of the most recently discovered names. The full
// sets keep growing; only the display window is capped.
func Recent(names []string, n int) []string {
	if len(names) <= n {
		return append([]string(nil), names...)
	}
	return append([]string(nil), names[len(names)-n:]...)
}
