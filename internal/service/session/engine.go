// Package session implements the turn-taking engine: conversation state,
// the Idle/AwaitingModel state machine, undo snapshots, entity tracking,
// achievement evaluation and autosave.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/seralis/fableforge/internal/achieve"
	"github.com/seralis/fableforge/internal/analysis/entity"
	"github.com/seralis/fableforge/internal/analysis/narrative"
	"github.com/seralis/fableforge/internal/model/game"
	"github.com/seralis/fableforge/internal/service/save"
)

var (
	// ErrTurnInFlight is returned when an action arrives while the engine
	// is still awaiting the model.
	ErrTurnInFlight = errors.New("a turn is already in flight")
	// ErrActionRequired is returned for blank actions.
	ErrActionRequired = errors.New("action text is required")
)

// Phase is the engine's state-machine position.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseAwaitingModel Phase = "awaiting-model"
)

// promptHistoryLimit caps how many non-system messages are retransmitted per
// turn. The stored conversation is unbounded; only the outbound prompt is
// windowed, with the system prompt always kept as prefix.
const promptHistoryLimit = 24

// ModelClient is the boundary with the model backend. Both calls block until
// the full reply is available; Stream additionally delivers ordered text
// fragments via onChunk before returning the final text.
type ModelClient interface {
	ModelName() string
	Complete(ctx context.Context, messages []game.Message, temperature float64) (string, error)
	Stream(ctx context.Context, messages []game.Message, temperature float64, onChunk func(chunk string)) (string, error)
}

// Engine owns one session's state. All mutation is serialized behind one
// mutex; the model call itself runs outside the lock and its result is
// applied only if the originating turn is still current.
type Engine struct {
	id    string
	model ModelClient
	saves *save.Service

	mu            sync.Mutex
	settings      game.Settings
	display       []game.DisplayEntry
	conv          *Conversation
	actions       []string
	actionHistory []string
	tracked       game.TrackedEntities
	achievements  []game.Achievement
	actionsTaken  int
	undo          []game.SessionState
	phase         Phase
	turnSeq       uint64
	subSeq        uint64
	subs          map[uint64]func(Event)
}

// NewEngine constructs an idle engine with no story yet.
func NewEngine(id string, model ModelClient, saves *save.Service, settings game.Settings, achievements []game.Achievement) *Engine {
	return &Engine{
		id:           id,
		model:        model,
		saves:        saves,
		settings:     settings.Normalize(),
		conv:         NewConversation(),
		achievements: achievements,
		phase:        PhaseIdle,
		subs:         make(map[uint64]func(Event)),
	}
}

// ID returns the session identifier.
func (e *Engine) ID() string { return e.id }

// Phase reports the current state-machine position.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// State returns a deep copy of the restorable session state.
func (e *Engine) State() game.SessionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessionState().Clone()
}

// Tracked returns a copy of the discovery sets.
func (e *Engine) Tracked() game.TrackedEntities {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracked.Clone()
}

// Achievements returns a copy of the catalog with current unlock state.
func (e *Engine) Achievements() []game.Achievement {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]game.Achievement(nil), e.achievements...)
}

// Counters returns the current progress counters.
func (e *Engine) Counters() game.Counters {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.counters()
}

// ActionHistory returns a copy of the actions taken so far.
func (e *Engine) ActionHistory() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.actionHistory...)
}

// ApplySettings swaps in new settings; the next turn uses them.
func (e *Engine) ApplySettings(settings game.Settings) {
	e.mu.Lock()
	e.settings = settings.Normalize()
	e.mu.Unlock()
}

// StartNewGame resets all session data, seeds the system prompt from the
// current settings, appends the opening instruction and runs the first turn.
func (e *Engine) StartNewGame(ctx context.Context, onChunk func(string)) error {
	e.mu.Lock()
	if e.phase != PhaseIdle {
		e.mu.Unlock()
		return ErrTurnInFlight
	}

	e.display = nil
	e.conv = NewConversation()
	e.actions = nil
	e.actionHistory = nil
	e.tracked = game.TrackedEntities{}
	e.actionsTaken = 0
	e.undo = nil

	e.conv.AppendSystem(BuildSystemPrompt(e.settings))
	e.conv.AppendUser(openingInstruction)
	e.appendDisplay("— A new tale begins —")

	turn, messages, temperature, streaming := e.beginTurnLocked()
	e.mu.Unlock()

	e.notify(Event{Type: EventTurnStarted, SessionID: e.id})
	return e.runTurn(ctx, turn, messages, temperature, streaming, onChunk)
}

// PerformAction submits one player action. It is rejected while a turn is
// already awaiting the model. On failure the user's turn stays in history
// and the engine is immediately ready for another action.
func (e *Engine) PerformAction(ctx context.Context, action string, onChunk func(string)) error {
	if action == "" {
		return ErrActionRequired
	}

	e.mu.Lock()
	if e.phase != PhaseIdle {
		e.mu.Unlock()
		return ErrTurnInFlight
	}

	e.pushSnapshot()
	e.appendDisplay("> " + action)
	e.actionHistory = append(e.actionHistory, action)
	e.conv.AppendUser(action)
	e.actionsTaken++

	turn, messages, temperature, streaming := e.beginTurnLocked()
	e.mu.Unlock()

	e.notify(Event{Type: EventTurnStarted, SessionID: e.id, Action: action})
	return e.runTurn(ctx, turn, messages, temperature, streaming, onChunk)
}

// beginTurnLocked transitions to AwaitingModel and captures everything the
// model call needs. Callers must hold e.mu.
func (e *Engine) beginTurnLocked() (turn uint64, messages []game.Message, temperature float64, streaming bool) {
	e.phase = PhaseAwaitingModel
	e.turnSeq++
	return e.turnSeq, e.conv.PromptWindow(promptHistoryLimit), e.settings.Temperature, e.settings.StreamingEnabled
}

func (e *Engine) runTurn(ctx context.Context, turn uint64, messages []game.Message, temperature float64, streaming bool, onChunk func(string)) error {
	var reply string
	var err error
	if streaming && onChunk != nil {
		// Chunks for a finalized or superseded turn are dropped.
		guarded := func(chunk string) {
			if e.isCurrentTurn(turn) {
				onChunk(chunk)
			}
		}
		reply, err = e.model.Stream(ctx, messages, temperature, guarded)
	} else {
		reply, err = e.model.Complete(ctx, messages, temperature)
	}

	if err != nil {
		e.failTurn(turn, err)
		return err
	}
	e.completeTurn(ctx, turn, reply)
	return nil
}

func (e *Engine) isCurrentTurn(turn uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase == PhaseAwaitingModel && e.turnSeq == turn
}

// completeTurn applies a successful reply: assistant message, parse, entity
// scan, achievement evaluation, autosave. Parsing and scanning are pure and
// run outside the lock; the reply can only be applied while its turn is
// still current, so the tracked sets cannot change in between.
func (e *Engine) completeTurn(ctx context.Context, turn uint64, reply string) {
	parsed := narrative.Parse(reply)
	found := entity.Scan(parsed.Narrative, e.Tracked())
	events := e.applyReply(ctx, turn, reply, parsed, found)
	e.notify(events...)
}

// applyReply commits the parsed turn under the lock. Both the unlock and the
// return to Idle are deferred, so a panic in any apply step cannot leave the
// session wedged behind a held mutex or a stuck AwaitingModel phase.
func (e *Engine) applyReply(ctx context.Context, turn uint64, reply string, parsed narrative.Parsed, found entity.Discoveries) []Event {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != PhaseAwaitingModel || e.turnSeq != turn {
		return nil
	}
	defer func() { e.phase = PhaseIdle }()

	e.conv.AppendAssistant(reply)

	if parsed.Narrative != "" {
		e.appendDisplay(parsed.Narrative)
	}
	e.actions = parsed.Actions

	e.tracked.Locations = append(e.tracked.Locations, found.Locations...)
	e.tracked.NPCs = append(e.tracked.NPCs, found.NPCs...)
	e.tracked.Items = append(e.tracked.Items, found.Items...)

	events := []Event{{
		Type:      EventTurnCompleted,
		SessionID: e.id,
		Narrative: parsed.Narrative,
		Actions:   append([]string(nil), parsed.Actions...),
	}}

	newly := achieve.Evaluate(e.counters(), e.achievements)
	if len(newly) > 0 {
		achieve.Unlock(e.achievements, newly, time.Now().UTC())
		for _, id := range newly {
			for _, a := range e.achievements {
				if a.ID == id {
					e.appendDisplay(fmt.Sprintf("Achievement unlocked: %s — %s", a.Title, a.Description))
					events = append(events, Event{Type: EventAchievementUnlocked, SessionID: e.id, AchievementID: id})
				}
			}
		}
		if e.saves != nil {
			if err := e.saves.SaveAchievements(ctx, e.achievements); err != nil {
				log.Printf("[engine] persist achievements: %v", err)
			}
		}
	}

	if e.settings.AutoSaveEnabled && e.saves != nil {
		saved := e.savedGameLocked()
		if _, err := e.saves.SaveGame(ctx, game.AutosaveSlotID, "Autosave", saved); err != nil {
			log.Printf("[engine] autosave: %v", err)
		}
	}

	return events
}

// failTurn records the error in the display log and discards the partial
// assistant turn; the conversation is left exactly as the user submitted it.
func (e *Engine) failTurn(turn uint64, cause error) {
	if !e.recordFailure(turn, cause) {
		return
	}
	e.notify(Event{Type: EventTurnFailed, SessionID: e.id, Error: cause.Error()})
}

func (e *Engine) recordFailure(turn uint64, cause error) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != PhaseAwaitingModel || e.turnSeq != turn {
		return false
	}

	e.appendDisplay(fmt.Sprintf(
		"The storyteller fell silent: %v.\nCheck that the model backend is reachable and that %q is available, then try your action again.",
		cause, e.model.ModelName(),
	))
	e.phase = PhaseIdle
	return true
}

// SaveTo persists the current session under the given slot.
func (e *Engine) SaveTo(ctx context.Context, slotID, name string) (game.SaveSlot, error) {
	if e.saves == nil {
		return game.SaveSlot{}, errors.New("persistence is not configured")
	}

	e.mu.Lock()
	saved := e.savedGameLocked()
	e.mu.Unlock()

	return e.saves.SaveGame(ctx, slotID, name, saved)
}

// LoadFrom restores the session from a slot. Missing or corrupt saves leave
// the current in-memory state untouched and report false.
func (e *Engine) LoadFrom(ctx context.Context, slotID string) bool {
	if e.saves == nil {
		return false
	}

	saved, ok := e.saves.LoadGame(ctx, slotID)
	if !ok {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != PhaseIdle {
		return false
	}

	e.display = saved.State.DisplayLog
	e.conv = NewConversation(saved.State.Conversation...)
	e.actions = saved.State.CurrentActions
	e.actionHistory = saved.ActionHistory
	e.tracked = saved.Tracked
	e.actionsTaken = saved.Counters.ActionsTaken
	e.undo = nil
	return true
}

func (e *Engine) savedGameLocked() save.SavedGame {
	return save.SavedGame{
		State:         e.sessionState().Clone(),
		Tracked:       e.tracked.Clone(),
		ActionHistory: append([]string(nil), e.actionHistory...),
		Counters:      e.counters(),
		SavedAt:       time.Now().UTC(),
	}
}

func (e *Engine) counters() game.Counters {
	return game.Counters{
		ActionsTaken:     e.actionsTaken,
		LocationsVisited: len(e.tracked.Locations),
		NPCsMet:          len(e.tracked.NPCs),
		ItemsHeld:        len(e.tracked.Items),
	}
}

// appendDisplay adds one entry to the display log. Callers must hold e.mu.
func (e *Engine) appendDisplay(text string) {
	e.display = append(e.display, game.DisplayEntry{
		ID:        uuid.NewString(),
		Text:      text,
		CreatedAt: time.Now().UTC(),
	})
}
