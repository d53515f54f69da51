package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/helpbench/support-console/internal/model"
)

// CreateConversation inserts a new conversation.
func (s *Store) CreateConversation(ctx context.Context, conv *model.Conversation) error {
	if err := s.db.WithContext(ctx).Create(conv).Error; err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

// ConversationByID fetches a single conversation scoped to a workspace.
func (s *Store) ConversationByID(ctx context.Context, workspaceID, conversationID string) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.db.WithContext(ctx).
		Where("workspace_id = ? AND id = ?", workspaceID, conversationID).
		First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch conversation: %w", err)
	}
	return &conv, nil
}

// ConversationsByWorkspace returns all conversations for a workspace ordered
// by creation time descending. The dashboard list order is fixed here;
// enrichment never reorders it.
func (s *Store) ConversationsByWorkspace(ctx context.Context, workspaceID string) ([]model.Conversation, error) {
	var convs []model.Conversation
	err := s.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("created_at DESC").
		Find(&convs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return convs, nil
}
