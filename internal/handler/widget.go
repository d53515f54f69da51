package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/helpbench/support-console/internal/assembler"
	"github.com/helpbench/support-console/internal/middleware"
	"github.com/helpbench/support-console/internal/model"
	"github.com/helpbench/support-console/internal/service"
	"github.com/helpbench/support-console/pkg/logger"
	"github.com/helpbench/support-console/pkg/metrics"
)

// WidgetHandler handles assistant widget endpoints.
type WidgetHandler struct {
	widgetService *service.WidgetService
	logger        *logger.Logger
}

// NewWidgetHandler creates a new widget handler.
func NewWidgetHandler(widgetSvc *service.WidgetService, log *logger.Logger) *WidgetHandler {
	return &WidgetHandler{
		widgetService: widgetSvc,
		logger:        log,
	}
}

// WidgetSendRequest is the request body for a widget send.
type WidgetSendRequest struct {
	Text string `json:"text"`
}

// Send handles POST /api/v1/widget/sessions/:widgetID/messages
//
// It dispatches one exchange and streams the reply over SSE: fragment events
// in arrival order, then a done event carrying the settled transcript. Stream
// failures surface as an error event; the transcript keeps any partial text
// that arrived before the failure.
func (h *WidgetHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	widgetID := chi.URLParam(r, "widgetID")

	if err := middleware.ValidateWidgetID(widgetID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req WidgetSendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text cannot be empty")
		return
	}
	if err := middleware.ValidateMessageContent(req.Text); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	widget := h.widgetService.Widget(widgetID)

	flusher, ok := setSSEHeaders(w)
	if !ok {
		return
	}

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	err := widget.SendStream(ctx, req.Text, func(fragment string, index int) error {
		return sendSSEEvent(w, flusher, "fragment", &model.FragmentEvent{
			Fragment: fragment,
			Index:    index,
		})
	})
	if err != nil {
		code := "stream_error"
		switch {
		case errors.Is(err, assembler.ErrSendInFlight):
			code = "busy"
		case errors.Is(err, assembler.ErrClosed):
			code = "closed"
		}
		h.logger.Warn("widget exchange failed",
			zap.String("widget_id", widgetID),
			zap.Error(err),
		)
		sendSSEEvent(w, flusher, "error", &model.ErrorEvent{
			Code:    code,
			Message: "The exchange did not complete",
		})
	}

	sendSSEEvent(w, flusher, "done", map[string]interface{}{
		"transcript": widget.Transcript(),
	})
}

// Transcript handles GET /api/v1/widget/sessions/:widgetID/transcript
func (h *WidgetHandler) Transcript(w http.ResponseWriter, r *http.Request) {
	widgetID := chi.URLParam(r, "widgetID")

	if err := middleware.ValidateWidgetID(widgetID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	widget := h.widgetService.Widget(widgetID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"transcript": widget.Transcript(),
	})
}

// Close handles DELETE /api/v1/widget/sessions/:widgetID
func (h *WidgetHandler) Close(w http.ResponseWriter, r *http.Request) {
	widgetID := chi.URLParam(r, "widgetID")

	if err := middleware.ValidateWidgetID(widgetID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.widgetService.Close(widgetID)
	w.WriteHeader(http.StatusNoContent)
}
