package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/helpbench/support-console/internal/middleware"
	"github.com/helpbench/support-console/internal/model"
	"github.com/helpbench/support-console/internal/service"
	"github.com/helpbench/support-console/internal/store"
	"github.com/helpbench/support-console/pkg/logger"
	"github.com/helpbench/support-console/pkg/metrics"
)

// MessageHandler handles message endpoints.
type MessageHandler struct {
	messageService *service.MessageService
	logger         *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(msgSvc *service.MessageService, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		messageService: msgSvc,
		logger:         log,
	}
}

// List handles GET /api/v1/conversations/:id/messages
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workspaceID := middleware.GetWorkspaceID(ctx)
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.messageService.List(ctx, workspaceID, conversationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
		h.logger.Error("failed to list messages", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Append handles POST /api/v1/conversations/:id/messages
func (h *MessageHandler) Append(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workspaceID := middleware.GetWorkspaceID(ctx)
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.AppendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.messageService.Append(ctx, workspaceID, conversationID, &req)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "conversation not found")
		case errors.Is(err, service.ErrEmptyMessage):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("failed to append message", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to append message")
		}
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

// DraftRequest is the request body for a draft-reply stream.
type DraftRequest struct {
	Model string `json:"model,omitempty"`
}

// Draft handles POST /api/v1/conversations/:id/draft
//
// It streams an AI-suggested agent reply over SSE: token events in arrival
// order, then a done event carrying the full draft.
func (h *MessageHandler) Draft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workspaceID := middleware.GetWorkspaceID(ctx)
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req DraftRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	flusher, ok := setSSEHeaders(w)
	if !ok {
		return
	}

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	draft, err := h.messageService.DraftReply(ctx, workspaceID, conversationID, req.Model,
		func(token string, index int) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			return sendSSEEvent(w, flusher, "token", &model.FragmentEvent{
				Fragment: token,
				Index:    index,
			})
		},
	)
	if err != nil {
		sendSSEEvent(w, flusher, "error", &model.ErrorEvent{
			Code:    "draft_error",
			Message: "Failed to draft a reply",
		})
		return
	}

	sendSSEEvent(w, flusher, "done", map[string]string{"draft": draft})
}
