package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/helpbench/support-console/internal/model"
)

// AppendMessage inserts a new message into a conversation.
func (s *Store) AppendMessage(ctx context.Context, msg *model.Message) error {
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// MessagesByConversation returns a conversation's messages ordered by
// creation time ascending.
func (s *Store) MessagesByConversation(ctx context.Context, conversationID string) ([]model.Message, error) {
	var msgs []model.Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return msgs, nil
}

// LatestMessage returns the most recent message in a conversation, or
// ErrNotFound when the conversation has no messages yet.
func (s *Store) LatestMessage(ctx context.Context, conversationID string) (*model.Message, error) {
	var msg model.Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest message: %w", err)
	}
	return &msg, nil
}
