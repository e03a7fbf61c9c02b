package game

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the conversation context sent to the model.
// Messages are immutable once appended.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
