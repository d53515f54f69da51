package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/helpbench/support-console/internal/llm"
	"github.com/helpbench/support-console/internal/service"
	"github.com/helpbench/support-console/pkg/logger"
)

func widgetRequest(method, target, body, widgetID string) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("widgetID", widgetID)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestWidgetSend_RejectsEmptyTextBeforeStreaming(t *testing.T) {
	svc := service.NewWidgetService(nil, llm.SessionConfig{Model: "m"}, logger.NewNop())
	h := NewWidgetHandler(svc, logger.NewNop())

	rec := httptest.NewRecorder()
	h.Send(rec, widgetRequest(http.MethodPost, "/messages", `{"text":"   "}`, "w1"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for whitespace-only text", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q, want plain JSON error, not an event stream", ct)
	}
}

func TestWidgetSend_RejectsInvalidWidgetID(t *testing.T) {
	svc := service.NewWidgetService(nil, llm.SessionConfig{Model: "m"}, logger.NewNop())
	h := NewWidgetHandler(svc, logger.NewNop())

	rec := httptest.NewRecorder()
	h.Send(rec, widgetRequest(http.MethodPost, "/messages", `{"text":"hi"}`, ""))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for empty widget ID", rec.Code)
	}
}

func TestWidgetTranscript_EmptyForNewWidget(t *testing.T) {
	svc := service.NewWidgetService(nil, llm.SessionConfig{Model: "m"}, logger.NewNop())
	h := NewWidgetHandler(svc, logger.NewNop())

	rec := httptest.NewRecorder()
	h.Transcript(rec, widgetRequest(http.MethodGet, "/transcript", "", "w1"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestWidgetClose(t *testing.T) {
	svc := service.NewWidgetService(nil, llm.SessionConfig{Model: "m"}, logger.NewNop())
	h := NewWidgetHandler(svc, logger.NewNop())

	rec := httptest.NewRecorder()
	h.Close(rec, widgetRequest(http.MethodDelete, "/", "", "w1"))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
}
