package session

// EventType enumerates the discrete state-change notifications an engine
// emits. A presentation layer subscribes instead of polling engine fields.
type EventType string

const (
	EventTurnStarted         EventType = "turn-started"
	EventTurnCompleted       EventType = "turn-completed"
	EventTurnFailed          EventType = "turn-failed"
	EventAchievementUnlocked EventType = "achievement-unlocked"
)

// Event carries one state-change notification.
type Event struct {
	Type          EventType `json:"type"`
	SessionID     string    `json:"sessionId"`
	Action        string    `json:"action,omitempty"`
	Narrative     string    `json:"narrative,omitempty"`
	Actions       []string  `json:"actions,omitempty"`
	Error         string    `json:"error,omitempty"`
	AchievementID string    `json:"achievementId,omitempty"`
}

// Subscribe registers fn for every future event of this engine and returns
// an unsubscribe func. Callbacks run on the turn-owning goroutine after the
// engine lock is released, so they may call back into the engine's read
// accessors.
func (e *Engine) Subscribe(fn func(Event)) func() {
	e.mu.Lock()
	e.subSeq++
	id := e.subSeq
	e.subs[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.subs, id)
		e.mu.Unlock()
	}
}

func (e *Engine) notify(events ...Event) {
	e.mu.Lock()
	subs := make([]func(Event), 0, len(e.subs))
	for _, fn := range e.subs {
		subs = append(subs, fn)
	}
	e.mu.Unlock()

	for _, event := range events {
		for _, fn := range subs {
			fn(event)
		}
	}
}
