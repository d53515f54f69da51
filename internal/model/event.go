package model

import (
	"time"
)

// ChangeOp is the kind of row change a feed notification describes.
type ChangeOp string

const (
	ChangeInsert ChangeOp = "insert"
	ChangeUpdate ChangeOp = "update"
	ChangeDelete ChangeOp = "delete"
)

// Change feed tables.
const (
	TableConversations = "conversations"
	TableMessages      = "messages"
)

// ChangeEvent is a workspace-scoped change notification. Consumers treat any
// event as a reason to reload; the payload carries no row data on purpose.
type ChangeEvent struct {
	WorkspaceID string    `json:"workspace_id"`
	Table       string    `json:"table"`
	Op          ChangeOp  `json:"op"`
	RecordID    string    `json:"record_id"`
	OccurredAt  time.Time `json:"occurred_at"`
}
