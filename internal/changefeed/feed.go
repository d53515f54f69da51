package changefeed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/helpbench/support-console/internal/model"
	"github.com/helpbench/support-console/pkg/logger"
	"github.com/helpbench/support-console/pkg/metrics"
)

// SubjectPrefix is the prefix for all change notification subjects.
const SubjectPrefix = "convchange"

// ChangeSubject returns the subject for one row change.
func ChangeSubject(workspaceID, table string, op model.ChangeOp) string {
	return fmt.Sprintf("%s.%s.%s.%s", SubjectPrefix, workspaceID, table, op)
}

// WorkspaceFilter returns the wildcard subject covering every change in a
// workspace, across both tables and all operations.
func WorkspaceFilter(workspaceID string) string {
	return fmt.Sprintf("%s.%s.>", SubjectPrefix, workspaceID)
}

// Feed publishes and subscribes to workspace-scoped change notifications.
// Notifications are reload triggers, not data carriers: a subscriber reacts
// by re-reading the store, so delivery is fire-and-forget.
type Feed struct {
	client *Client
	logger *logger.Logger
}

// NewFeed creates a feed over an established NATS client.
func NewFeed(client *Client, log *logger.Logger) *Feed {
	return &Feed{client: client, logger: log}
}

// Publish emits one change notification.
func (f *Feed) Publish(ctx context.Context, event *model.ChangeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}

	subject := ChangeSubject(event.WorkspaceID, event.Table, event.Op)
	if err := f.client.Conn().Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}

	metrics.ChangeEventsPublished.WithLabelValues(event.Table, string(event.Op)).Inc()
	return nil
}

// Subscribe opens one logical subscription for a workspace and invokes
// handler for every notification. The returned disposer tears the
// subscription down.
func (f *Feed) Subscribe(workspaceID string, handler func(model.ChangeEvent)) (func(), error) {
	sub, err := f.client.Conn().Subscribe(WorkspaceFilter(workspaceID), func(msg *nats.Msg) {
		var event model.ChangeEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			f.logger.Warn("discarding malformed change event",
				zap.String("subject", msg.Subject),
				zap.Error(err),
			)
			return
		}
		handler(event)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to change feed: %w", err)
	}

	return func() {
		if err := sub.Unsubscribe(); err != nil {
			f.logger.Warn("failed to unsubscribe from change feed",
				zap.String("workspace_id", workspaceID),
				zap.Error(err),
			)
		}
	}, nil
}

// NotifyStatus registers a connectivity handler on the underlying client and
// returns a disposer that removes it.
func (f *Feed) NotifyStatus(fn func(connected bool)) func() {
	return f.client.NotifyStatus(fn)
}
