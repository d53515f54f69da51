package store

import (
	"context"
	"fmt"
	"time"

	"github.com/helpbench/support-console/internal/model"
)

// WorkspaceStats computes the aggregate counters the super-admin console
// shows for a workspace.
func (s *Store) WorkspaceStats(ctx context.Context, workspaceID string) (*model.WorkspaceStats, error) {
	stats := &model.WorkspaceStats{WorkspaceID: workspaceID}
	db := s.db.WithContext(ctx)

	if err := db.Model(&model.Conversation{}).
		Where("workspace_id = ?", workspaceID).
		Count(&stats.ConversationCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count conversations: %w", err)
	}

	if err := db.Model(&model.Message{}).
		Joins("JOIN conversations ON conversations.id = messages.conversation_id").
		Where("conversations.workspace_id = ?", workspaceID).
		Count(&stats.MessageCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}
	if err := db.Model(&model.Message{}).
		Joins("JOIN conversations ON conversations.id = messages.conversation_id").
		Where("conversations.workspace_id = ? AND messages.sender = ?", workspaceID, model.SenderVisitor).
		Count(&stats.VisitorMessages).Error; err != nil {
		return nil, fmt.Errorf("failed to count visitor messages: %w", err)
	}
	stats.AgentMessages = stats.MessageCount - stats.VisitorMessages

	// Per-day buckets are computed in Go: SQLite and Postgres disagree on
	// date truncation syntax, and workspaces are small enough to scan.
	var createdAts []time.Time
	if err := db.Model(&model.Conversation{}).
		Where("workspace_id = ?", workspaceID).
		Order("created_at ASC").
		Pluck("created_at", &createdAts).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch conversation dates: %w", err)
	}

	counts := make(map[string]int64)
	var days []string
	for _, ts := range createdAts {
		day := ts.UTC().Format("2006-01-02")
		if _, seen := counts[day]; !seen {
			days = append(days, day)
		}
		counts[day]++
	}
	for _, day := range days {
		stats.ConversationsByDay = append(stats.ConversationsByDay, model.DayBucket{
			Day:   day,
			Count: counts[day],
		})
	}

	return stats, nil
}
