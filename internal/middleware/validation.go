package middleware

import (
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ValidateMessageContent validates message content.
func ValidateMessageContent(content string) error {
	if len(content) > 100000 { // ~100KB limit
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	return nil
}

// ValidateConversationID validates a conversation ID.
func ValidateConversationID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid conversation ID format")
	}
	return nil
}

// ValidateWorkspaceID validates a workspace ID.
func ValidateWorkspaceID(id string) error {
	if len(id) == 0 {
		return errors.New("workspace ID cannot be empty")
	}
	if len(id) > 64 {
		return errors.New("workspace ID exceeds maximum length")
	}
	return nil
}

// ValidateWidgetID validates a widget session ID.
func ValidateWidgetID(id string) error {
	if len(id) == 0 {
		return errors.New("widget ID cannot be empty")
	}
	if len(id) > 128 {
		return errors.New("widget ID exceeds maximum length")
	}
	if !utf8.ValidString(id) {
		return errors.New("widget ID must be valid UTF-8")
	}
	return nil
}
