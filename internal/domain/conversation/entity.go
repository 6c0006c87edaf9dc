package conversation

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Conversation statuses
const (
	StatusOpen     = "open"
	StatusPending  = "pending"
	StatusResolved = "resolved"
)

// Default priority for newly created conversations.
const PriorityNone = "none"

// Conversation represents the conversations table: an ordered thread of
// messages for one (account, inbox, contact) triple. DisplayID is the
// tenant-scoped, human-facing sequential number.
type Conversation struct {
	ID             uuid.UUID
	AccountID      uuid.UUID
	InboxID        uuid.UUID
	ContactID      uuid.UUID
	ContactInboxID uuid.UUID

	DisplayID int64
	Status    string
	Priority  string

	AssigneeID uuid.NullUUID

	LastActivityAt time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time

	ResolvedAt sql.NullTime
}

func (Conversation) TableName() string {
	return "conversations"
}

// Open reopens a resolved or pending conversation for reuse.
func (c *Conversation) Open(now time.Time) {
	c.Status = StatusOpen
	c.ResolvedAt = sql.NullTime{}
	c.LastActivityAt = now
}
