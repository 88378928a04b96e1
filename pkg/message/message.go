package message

import "github.com/checkmarxDev/audit-wrapper/pkg/role"

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is replayed to the model in order.
type Conversation []Message

func System(content string) Message {
	return Message{Role: role.System, Content: content}
}

func User(content string) Message {
	return Message{Role: role.User, Content: content}
}

func Assistant(content string) Message {
	return Message{Role: role.Assistant, Content: content}
}

type MetaData struct {
	RequestID string
	TenantID  string
	UserAgent string
	Feature   string
}
