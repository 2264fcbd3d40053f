package model

// Role identifies who authored a conversation message.
type Role string

const (
	// RoleUser is a message typed or spoken by the user.
	RoleUser Role = "user"
	// RoleAssistant is a reply produced by the assistant.
	RoleAssistant Role = "assistant"
)

// Message is one turn of the assistant conversation.
type Message struct {
	ID      string `json:"id"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
