package session

import "github.com/seralis/fableforge/internal/model/game"

// maxUndoDepth bounds the snapshot stack; the oldest entry is evicted on
// overflow.
const maxUndoDepth = 10

// pushSnapshot records the current state before a new action mutates it.
// Callers must hold e.mu.
func (e *Engine) pushSnapshot() {
	snap := e.sessionState().Clone()
	if len(e.undo) >= maxUndoDepth {
		e.undo = e.undo[1:]
	}
	e.undo = append(e.undo, snap)
}

// Undo restores the most recent snapshot: display log, conversation and
// current actions, and pops the matching entry from the action history. An
// empty stack or an in-flight turn makes it a silent no-op. Persisted
// autosaves and achievement unlocks are not rolled back.
func (e *Engine) Undo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != PhaseIdle || len(e.undo) == 0 {
		return false
	}

	snap := e.undo[len(e.undo)-1]
	e.undo = e.undo[:len(e.undo)-1]

	e.display = snap.DisplayLog
	e.conv = NewConversation(snap.Conversation...)
	e.actions = snap.CurrentActions
	if len(e.actionHistory) > 0 {
		e.actionHistory = e.actionHistory[:len(e.actionHistory)-1]
	}
	return true
}

func (e *Engine) sessionState() game.SessionState {
	return game.SessionState{
		DisplayLog:     e.display,
		Conversation:   e.conv.Snapshot(),
		CurrentActions: e.actions,
	}
}
