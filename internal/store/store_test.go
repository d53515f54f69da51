package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/helpbench/support-console/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newConversation(t *testing.T, s *Store, workspaceID string, createdAt time.Time) *model.Conversation {
	t.Helper()
	conv := &model.Conversation{
		ID:          uuid.New().String(),
		WorkspaceID: workspaceID,
		VisitorID:   "visitor-1",
		CreatedAt:   createdAt,
	}
	if err := s.CreateConversation(context.Background(), conv); err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}
	return conv
}

func appendText(t *testing.T, s *Store, conversationID, text string, sender model.Sender, at time.Time) *model.Message {
	t.Helper()
	msg := &model.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Content:        &text,
		Sender:         sender,
		CreatedAt:      at,
	}
	if err := s.AppendMessage(context.Background(), msg); err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}
	return msg
}

func TestConversationsByWorkspace_OrderedNewestFirst(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

	oldest := newConversation(t, s, "ws1", base)
	middle := newConversation(t, s, "ws1", base.Add(time.Hour))
	newest := newConversation(t, s, "ws1", base.Add(2*time.Hour))
	newConversation(t, s, "ws2", base.Add(3*time.Hour))

	convs, err := s.ConversationsByWorkspace(context.Background(), "ws1")
	if err != nil {
		t.Fatalf("ConversationsByWorkspace() error = %v", err)
	}
	if len(convs) != 3 {
		t.Fatalf("len(convs) = %d, want 3 (other workspace excluded)", len(convs))
	}
	want := []string{newest.ID, middle.ID, oldest.ID}
	for i, conv := range convs {
		if conv.ID != want[i] {
			t.Fatalf("convs[%d].ID = %s, want %s", i, conv.ID, want[i])
		}
	}
}

func TestConversationByID_ScopedToWorkspace(t *testing.T) {
	s := openTestStore(t)
	conv := newConversation(t, s, "ws1", time.Now().UTC())

	got, err := s.ConversationByID(context.Background(), "ws1", conv.ID)
	if err != nil {
		t.Fatalf("ConversationByID() error = %v", err)
	}
	if got.ID != conv.ID {
		t.Fatalf("ConversationByID() = %s, want %s", got.ID, conv.ID)
	}

	if _, err := s.ConversationByID(context.Background(), "ws2", conv.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-workspace lookup error = %v, want ErrNotFound", err)
	}
}

func TestMessages_AppendAndListAscending(t *testing.T) {
	s := openTestStore(t)
	conv := newConversation(t, s, "ws1", time.Now().UTC())
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

	first := appendText(t, s, conv.ID, "hello", model.SenderVisitor, base)
	second := appendText(t, s, conv.ID, "hi, how can I help?", model.SenderAgent, base.Add(time.Minute))

	msgs, err := s.MessagesByConversation(context.Background(), conv.ID)
	if err != nil {
		t.Fatalf("MessagesByConversation() error = %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len(msgs) = %d, want 2", len(msgs))
	}
	if msgs[0].ID != first.ID || msgs[1].ID != second.ID {
		t.Fatalf("message order = [%s, %s], want chronological", msgs[0].ID, msgs[1].ID)
	}
	if msgs[1].Sender != model.SenderAgent {
		t.Fatalf("msgs[1].Sender = %s, want agent", msgs[1].Sender)
	}
}

func TestLatestMessage(t *testing.T) {
	s := openTestStore(t)
	conv := newConversation(t, s, "ws1", time.Now().UTC())
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

	if _, err := s.LatestMessage(context.Background(), conv.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("LatestMessage() on empty conversation error = %v, want ErrNotFound", err)
	}

	appendText(t, s, conv.ID, "older", model.SenderVisitor, base)
	latest := appendText(t, s, conv.ID, "newer", model.SenderVisitor, base.Add(time.Minute))

	got, err := s.LatestMessage(context.Background(), conv.ID)
	if err != nil {
		t.Fatalf("LatestMessage() error = %v", err)
	}
	if got.ID != latest.ID {
		t.Fatalf("LatestMessage() = %s (%q), want %s", got.ID, got.Text(), latest.ID)
	}
}

func TestWorkspaceStats(t *testing.T) {
	s := openTestStore(t)
	day1 := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC)

	a := newConversation(t, s, "ws1", day1)
	b := newConversation(t, s, "ws1", day2)
	newConversation(t, s, "ws2", day1)

	appendText(t, s, a.ID, "help", model.SenderVisitor, day1)
	appendText(t, s, a.ID, "sure", model.SenderAgent, day1.Add(time.Minute))
	appendText(t, s, b.ID, "hi", model.SenderVisitor, day2)

	stats, err := s.WorkspaceStats(context.Background(), "ws1")
	if err != nil {
		t.Fatalf("WorkspaceStats() error = %v", err)
	}
	if stats.ConversationCount != 2 {
		t.Fatalf("ConversationCount = %d, want 2", stats.ConversationCount)
	}
	if stats.MessageCount != 3 {
		t.Fatalf("MessageCount = %d, want 3", stats.MessageCount)
	}
	if stats.VisitorMessages != 2 || stats.AgentMessages != 1 {
		t.Fatalf("sender split = %d visitor / %d agent, want 2/1",
			stats.VisitorMessages, stats.AgentMessages)
	}
	if len(stats.ConversationsByDay) != 2 {
		t.Fatalf("ConversationsByDay = %+v, want 2 buckets", stats.ConversationsByDay)
	}
	for _, bucket := range stats.ConversationsByDay {
		if bucket.Count != 1 {
			t.Fatalf("bucket %s count = %d, want 1", bucket.Day, bucket.Count)
		}
	}
}
