// Package service provides business logic for the support console.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/helpbench/support-console/internal/changefeed"
	"github.com/helpbench/support-console/internal/listsync"
	"github.com/helpbench/support-console/internal/model"
	"github.com/helpbench/support-console/internal/store"
	"github.com/helpbench/support-console/pkg/logger"
	"github.com/helpbench/support-console/pkg/metrics"
)

// ConversationService handles conversation operations.
type ConversationService struct {
	store  *store.Store
	feed   *changefeed.Feed
	logger *logger.Logger
}

// NewConversationService creates a new conversation service.
func NewConversationService(st *store.Store, feed *changefeed.Feed, log *logger.Logger) *ConversationService {
	return &ConversationService{
		store:  st,
		feed:   feed,
		logger: log,
	}
}

// Create opens a new conversation for a visitor and notifies the workspace's
// change feed.
func (s *ConversationService) Create(ctx context.Context, workspaceID string, req *model.CreateConversationRequest) (*model.Conversation, error) {
	conv := &model.Conversation{
		ID:           uuid.Must(uuid.NewV7()).String(),
		WorkspaceID:  workspaceID,
		VisitorID:    req.VisitorID,
		VisitorEmail: req.VisitorEmail,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.store.CreateConversation(ctx, conv); err != nil {
		return nil, err
	}

	s.publishChange(ctx, workspaceID, model.TableConversations, model.ChangeInsert, conv.ID)
	metrics.ConversationsTotal.WithLabelValues(workspaceID).Inc()

	s.logger.Info("conversation created",
		zap.String("conversation_id", conv.ID),
		zap.String("workspace_id", workspaceID),
	)

	return conv, nil
}

// Get retrieves a conversation scoped to a workspace.
func (s *ConversationService) Get(ctx context.Context, workspaceID, conversationID string) (*model.Conversation, error) {
	return s.store.ConversationByID(ctx, workspaceID, conversationID)
}

// List returns the enriched conversation list for a workspace, ordered by
// conversation creation time descending.
func (s *ConversationService) List(ctx context.Context, workspaceID string) (*model.ListConversationsResponse, error) {
	sync := listsync.New(s.store, s.feed, workspaceID, s.logger)
	entries, err := sync.Load(ctx)
	if err != nil {
		return nil, err
	}

	return &model.ListConversationsResponse{
		Entries: entries,
		Total:   len(entries),
	}, nil
}

// Synchronizer returns a fresh list synchronizer for one dashboard view.
// Each watch connection owns its own instance.
func (s *ConversationService) Synchronizer(workspaceID string) *listsync.Synchronizer {
	return listsync.New(s.store, s.feed, workspaceID, s.logger)
}

// Stats computes the workspace aggregate counters.
func (s *ConversationService) Stats(ctx context.Context, workspaceID string) (*model.WorkspaceStats, error) {
	return s.store.WorkspaceStats(ctx, workspaceID)
}

// publishChange emits a change notification. Publish failures are logged and
// swallowed: the write already happened, and the next successful notification
// or reconnect reload heals any missed update.
func (s *ConversationService) publishChange(ctx context.Context, workspaceID, table string, op model.ChangeOp, recordID string) {
	err := s.feed.Publish(ctx, &model.ChangeEvent{
		WorkspaceID: workspaceID,
		Table:       table,
		Op:          op,
		RecordID:    recordID,
		OccurredAt:  time.Now().UTC(),
	})
	if err != nil {
		s.logger.Warn("failed to publish change event",
			zap.String("workspace_id", workspaceID),
			zap.String("table", table),
			zap.Error(err),
		)
	}
}
