// Package handler provides HTTP handlers for the API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/helpbench/support-console/internal/middleware"
	"github.com/helpbench/support-console/internal/model"
	"github.com/helpbench/support-console/internal/service"
	"github.com/helpbench/support-console/internal/store"
	"github.com/helpbench/support-console/pkg/logger"
	"github.com/helpbench/support-console/pkg/metrics"
)

// ConversationHandler handles conversation endpoints.
type ConversationHandler struct {
	service *service.ConversationService
	logger  *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(svc *service.ConversationService, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		service: svc,
		logger:  log,
	}
}

// Create handles POST /api/v1/conversations
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workspaceID := middleware.GetWorkspaceID(ctx)

	var req model.CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.VisitorID == "" {
		writeError(w, http.StatusBadRequest, "visitor_id is required")
		return
	}

	conv, err := h.service.Create(ctx, workspaceID, &req)
	if err != nil {
		h.logger.Error("failed to create conversation", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create conversation")
		return
	}

	writeJSON(w, http.StatusCreated, conv)
}

// List handles GET /api/v1/conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workspaceID := middleware.GetWorkspaceID(ctx)

	resp, err := h.service.List(ctx, workspaceID)
	if err != nil {
		h.logger.Error("failed to list conversations", zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to load conversations")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/v1/conversations/:id
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workspaceID := middleware.GetWorkspaceID(ctx)
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := h.service.Get(ctx, workspaceID, conversationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
		h.logger.Error("failed to get conversation", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get conversation")
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

// Watch handles GET /api/v1/conversations/watch
//
// It pushes the enriched conversation list over SSE: one snapshot event on
// connect, then a fresh snapshot after every coalesced reload triggered by
// the change feed. Snapshots always replace the previous list wholesale.
func (h *ConversationHandler) Watch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workspaceID := middleware.GetWorkspaceID(ctx)

	sync := h.service.Synchronizer(workspaceID)

	// Drop-and-replace buffer: the connection only ever cares about the
	// newest snapshot.
	snapshots := make(chan []model.ListEntry, 1)
	onSnapshot := func(entries []model.ListEntry) {
		for {
			select {
			case snapshots <- entries:
				return
			default:
				select {
				case <-snapshots:
				default:
				}
			}
		}
	}

	stop, err := sync.Watch(ctx, onSnapshot)
	if err != nil {
		h.logger.Error("failed to start conversation watch",
			zap.String("workspace_id", workspaceID),
			zap.Error(err),
		)
		writeError(w, http.StatusBadGateway, "failed to load conversations")
		return
	}
	defer stop()

	flusher, ok := setSSEHeaders(w)
	if !ok {
		return
	}

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	sendSSEEvent(w, flusher, "connected", map[string]string{
		"workspace_id": workspaceID,
	})

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("watch client disconnected", zap.String("workspace_id", workspaceID))
			return

		case entries := <-snapshots:
			sendSSEEvent(w, flusher, "snapshot", &model.ListConversationsResponse{
				Entries:  entries,
				Total:    len(entries),
				Degraded: sync.Degraded(),
			})

		case <-heartbeat.C:
			sendSSEEvent(w, flusher, "heartbeat", &model.HeartbeatEvent{
				Timestamp: time.Now(),
			})
		}
	}
}

// Stats handles GET /api/v1/stats
func (h *ConversationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workspaceID := middleware.GetWorkspaceID(ctx)

	stats, err := h.service.Stats(ctx, workspaceID)
	if err != nil {
		h.logger.Error("failed to compute workspace stats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
