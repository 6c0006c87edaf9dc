package inbox

import (
	"time"

	"github.com/google/uuid"

	"supporthub/internal/domain/channel"
)

// Inbox represents the inboxes table. It groups conversations for one
// channel within one account. The (ChannelKind, ChannelID) pair is the
// tagged reference to the backing channel record.
type Inbox struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Name      string

	ChannelKind channel.Kind
	ChannelID   uuid.UUID

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Inbox) TableName() string {
	return "inboxes"
}
