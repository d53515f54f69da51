package model

import (
	"time"
)

// Sender represents who authored a message.
type Sender string

const (
	SenderVisitor Sender = "visitor"
	SenderAgent   Sender = "agent"
)

// Message represents a message within a conversation. Content is nil for
// image-only messages; ordering within a conversation is by CreatedAt ascending.
type Message struct {
	ID             string    `json:"id" gorm:"primaryKey;size:36"`
	ConversationID string    `json:"conversation_id" gorm:"index;size:36;not null"`
	Content        *string   `json:"content"`
	ImageURL       string    `json:"image_url,omitempty" gorm:"type:text"`
	Sender         Sender    `json:"sender" gorm:"size:16;not null"`
	CreatedAt      time.Time `json:"created_at" gorm:"index"`
}

// TableName returns the database table name.
func (Message) TableName() string {
	return "messages"
}

// Text returns the message content, or "" when the message is image-only.
func (m *Message) Text() string {
	if m.Content == nil {
		return ""
	}
	return *m.Content
}

// AppendMessageRequest is the request to append a message to a conversation.
type AppendMessageRequest struct {
	Content  string `json:"content"`
	ImageURL string `json:"image_url,omitempty"`
	Sender   Sender `json:"sender"`
}

// ListMessagesResponse is the response for listing a conversation's messages.
type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
	Total    int       `json:"total"`
}

// FragmentEvent is a streamed reply fragment pushed over SSE.
type FragmentEvent struct {
	Fragment string `json:"fragment"`
	Index    int    `json:"index"`
}

// ErrorEvent represents an error event on an SSE stream.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HeartbeatEvent represents a heartbeat event.
type HeartbeatEvent struct {
	Timestamp time.Time `json:"timestamp"`
}
