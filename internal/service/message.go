package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/helpbench/support-console/internal/changefeed"
	"github.com/helpbench/support-console/internal/llm"
	"github.com/helpbench/support-console/internal/model"
	"github.com/helpbench/support-console/internal/store"
	"github.com/helpbench/support-console/pkg/logger"
	"github.com/helpbench/support-console/pkg/metrics"
)

// ErrEmptyMessage is returned when a message has neither text nor an image.
var ErrEmptyMessage = errors.New("message needs text content or an image")

// MessageService handles message operations.
type MessageService struct {
	store     *store.Store
	feed      *changefeed.Feed
	llmClient llm.Client
	logger    *logger.Logger
}

// NewMessageService creates a new message service.
func NewMessageService(st *store.Store, feed *changefeed.Feed, llmClient llm.Client, log *logger.Logger) *MessageService {
	return &MessageService{
		store:     st,
		feed:      feed,
		llmClient: llmClient,
		logger:    log,
	}
}

// Append adds a message to a conversation and notifies the change feed.
func (s *MessageService) Append(ctx context.Context, workspaceID, conversationID string, req *model.AppendMessageRequest) (*model.Message, error) {
	conv, err := s.store.ConversationByID(ctx, workspaceID, conversationID)
	if err != nil {
		return nil, err
	}

	content := strings.TrimSpace(req.Content)
	if content == "" && req.ImageURL == "" {
		return nil, ErrEmptyMessage
	}

	sender := req.Sender
	if sender != model.SenderVisitor && sender != model.SenderAgent {
		return nil, fmt.Errorf("invalid sender %q", req.Sender)
	}

	msg := &model.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conv.ID,
		ImageURL:       req.ImageURL,
		Sender:         sender,
		CreatedAt:      time.Now().UTC(),
	}
	if content != "" {
		msg.Content = &content
	}

	if err := s.store.AppendMessage(ctx, msg); err != nil {
		return nil, err
	}

	s.publishChange(ctx, workspaceID, conv.ID)
	metrics.MessagesTotal.WithLabelValues(workspaceID, string(sender)).Inc()

	return msg, nil
}

// List returns a conversation's messages ordered by creation time ascending.
func (s *MessageService) List(ctx context.Context, workspaceID, conversationID string) (*model.ListMessagesResponse, error) {
	if _, err := s.store.ConversationByID(ctx, workspaceID, conversationID); err != nil {
		return nil, err
	}

	msgs, err := s.store.MessagesByConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	return &model.ListMessagesResponse{
		Messages: msgs,
		Total:    len(msgs),
	}, nil
}

// DraftReply streams an AI-suggested agent reply for a conversation, built
// from its message history. The draft is not persisted; the operator reviews
// it before sending.
func (s *MessageService) DraftReply(ctx context.Context, workspaceID, conversationID, modelName string, onToken llm.StreamCallback) (string, error) {
	if s.llmClient == nil {
		return "", errors.New("no LLM provider configured")
	}

	if _, err := s.store.ConversationByID(ctx, workspaceID, conversationID); err != nil {
		return "", err
	}

	msgs, err := s.store.MessagesByConversation(ctx, conversationID)
	if err != nil {
		return "", err
	}

	chatMessages := make([]llm.ChatMessage, 0, len(msgs))
	for i := range msgs {
		role := "user"
		if msgs[i].Sender == model.SenderAgent {
			role = "assistant"
		}
		text := msgs[i].Text()
		if text == "" {
			continue
		}
		chatMessages = append(chatMessages, llm.ChatMessage{Role: role, Content: text})
	}
	if len(chatMessages) == 0 {
		return "", errors.New("conversation has no text messages to reply to")
	}

	start := time.Now()
	resp, err := s.llmClient.CompleteStream(ctx, &llm.CompletionRequest{
		Model:    modelName,
		System:   "You are a customer support agent. Draft a helpful, concise reply to the visitor.",
		Messages: chatMessages,
		Stream:   true,
	}, onToken)
	if err != nil {
		metrics.RecordLLMStream(modelName, "error", time.Since(start).Seconds(), 0, 0)
		return "", fmt.Errorf("draft stream failed: %w", err)
	}

	metrics.RecordLLMStream(resp.Model, "success", time.Since(start).Seconds(), resp.TokensIn, resp.TokensOut)
	return resp.Content, nil
}

func (s *MessageService) publishChange(ctx context.Context, workspaceID, conversationID string) {
	err := s.feed.Publish(ctx, &model.ChangeEvent{
		WorkspaceID: workspaceID,
		Table:       model.TableMessages,
		Op:          model.ChangeInsert,
		RecordID:    conversationID,
		OccurredAt:  time.Now().UTC(),
	})
	if err != nil {
		s.logger.Warn("failed to publish change event",
			zap.String("workspace_id", workspaceID),
			zap.Error(err),
		)
	}
}
