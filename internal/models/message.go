package models

import "strings"

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is a single chat turn.
type Message struct {
	Role    string `json:"role" bson:"role"`
	Content string `json:"content" bson:"content"`
}

// FirstUserMessage returns the first user turn, the original prompt.
func FirstUserMessage(messages []Message) (Message, bool) {
	for _, m := range messages {
		if m.Role == RoleUser {
			return m, true
		}
	}
	return Message{}, false
}

// ValidRole reports whether role is user or assistant.
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// CloneMessages returns a copy of messages that shares no backing array.
func CloneMessages(messages []Message) []Message {
	if messages == nil {
		return nil
	}
	out := make([]Message, len(messages))
	copy(out, messages)
	return out
}

// titleLength is how many runes of the first turn make the title.
const titleLength = 50

// ConversationTitle builds a title from the first message, adding "..." only when it is cut.
func ConversationTitle(messages []Message) string {
	if len(messages) == 0 {
		return "Untitled"
	}
	content := strings.TrimSpace(messages[0].Content)
	if content == "" {
		return "Untitled"
	}
	runes := []rune(content)
	if len(runes) <= titleLength {
		return content
	}
	return string(runes[:titleLength]) + "..."
}
