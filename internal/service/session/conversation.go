package session

import "github.com/seralis/fableforge/internal/model/game"

// Conversation is the append-only message log sent as model context. There
// are no edit or removal operations; undo swaps the whole log for an earlier
// snapshot.
type Conversation struct {
	messages []game.Message
}

// NewConversation returns an empty conversation, optionally pre-seeded.
func NewConversation(messages ...game.Message) *Conversation {
	return &Conversation{messages: append([]game.Message(nil), messages...)}
}

// AppendSystem appends a system message.
func (c *Conversation) AppendSystem(text string) {
	c.messages = append(c.messages, game.Message{Role: game.RoleSystem, Content: text})
}

// AppendUser appends a user message.
func (c *Conversation) AppendUser(text string) {
	c.messages = append(c.messages, game.Message{Role: game.RoleUser, Content: text})
}

// AppendAssistant appends an assistant message.
func (c *Conversation) AppendAssistant(text string) {
	c.messages = append(c.messages, game.Message{Role: game.RoleAssistant, Content: text})
}

// Snapshot returns a copy; the live conversation stays independently
// mutable afterwards.
func (c *Conversation) Snapshot() []game.Message {
	return append([]game.Message(nil), c.messages...)
}

// Len reports the number of messages.
func (c *Conversation) Len() int { return len(c.messages) }

// PromptWindow returns the context to transmit: the system prompt prefix
// (if present) plus at most limit of the most recent other messages. The
// stored conversation itself is never truncated.
func (c *Conversation) PromptWindow(limit int) []game.Message {
	if limit <= 0 || len(c.messages) == 0 {
		return c.Snapshot()
	}

	start := 0
	var window []game.Message
	if c.messages[0].Role == game.RoleSystem {
		window = append(window, c.messages[0])
		start = 1
	}

	rest := c.messages[start:]
	if len(rest) > limit {
		rest = rest[len(rest)-limit:]
	}
	return append(window, rest...)
}
