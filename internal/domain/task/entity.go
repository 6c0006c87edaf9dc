package task

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Task statuses
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Task kinds
const (
	KindMessageSend = "message.send"
)

// Task represents the tasks table: a durable background job row written in
// the same transaction as the change that triggered it, then picked up by
// the polling worker. Delivery is at-least-once; handlers must be idempotent.
type Task struct {
	ID         uuid.UUID
	Kind       string
	Payload    []byte
	Status     string
	RetryCount int
	LastError  sql.NullString

	ScheduledAt time.Time
	ProcessedAt sql.NullTime
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Task) TableName() string {
	return "tasks"
}

// SendMessagePayload is the payload for KindMessageSend tasks.
type SendMessagePayload struct {
	MessageID uuid.UUID `json:"message_id"`
	AccountID uuid.UUID `json:"account_id"`
}
