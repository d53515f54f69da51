// Package model defines data structures for the support console.
package model

import (
	"time"
)

// Conversation represents a visitor conversation owned by a workspace.
type Conversation struct {
	ID           string    `json:"id" gorm:"primaryKey;size:36"`
	WorkspaceID  string    `json:"workspace_id" gorm:"index;size:64;not null"`
	VisitorID    string    `json:"visitor_id" gorm:"size:64;not null"`
	VisitorEmail string    `json:"visitor_email,omitempty" gorm:"size:255"`
	CreatedAt    time.Time `json:"created_at" gorm:"index"`
}

// TableName returns the database table name.
func (Conversation) TableName() string {
	return "conversations"
}

// ListEntry is the dashboard read model: a conversation paired with its most
// recent message. LastMessage is nil for conversations with no messages yet.
type ListEntry struct {
	Conversation Conversation `json:"conversation"`
	LastMessage  *Message     `json:"last_message,omitempty"`
}

// CreateConversationRequest is the request to open a new conversation.
type CreateConversationRequest struct {
	VisitorID    string `json:"visitor_id"`
	VisitorEmail string `json:"visitor_email,omitempty"`
}

// ListConversationsResponse is the response for listing conversations.
type ListConversationsResponse struct {
	Entries  []ListEntry `json:"entries"`
	Total    int         `json:"total"`
	Degraded bool        `json:"degraded,omitempty"`
}

// WorkspaceStats is the aggregate returned by the stats procedure.
type WorkspaceStats struct {
	WorkspaceID        string      `json:"workspace_id"`
	ConversationCount  int64       `json:"conversation_count"`
	MessageCount       int64       `json:"message_count"`
	VisitorMessages    int64       `json:"visitor_messages"`
	AgentMessages      int64       `json:"agent_messages"`
	ConversationsByDay []DayBucket `json:"conversations_by_day"`
}

// DayBucket is one day's conversation count.
type DayBucket struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}
