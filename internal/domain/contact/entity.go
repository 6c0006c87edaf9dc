package contact

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"supporthub/internal/domain/channel"
)

// Contact represents the contacts table: a tenant-scoped end-user identity,
// created lazily on first inbound message from a new external identifier.
type Contact struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Name      string
	AvatarURL sql.NullString
	// Free-form platform metadata (follower count, verification flags)
	// stored as a JSON document.
	Attributes string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ContactInbox represents the contact_inboxes table: the join between one
// contact and one inbox, keyed by the platform external identifier. The
// source_id is unique within an inbox; conversation lookup pivots on it.
type ContactInbox struct {
	ID        uuid.UUID
	ContactID uuid.UUID
	InboxID   uuid.UUID
	SourceID  string
	Verified  bool
	CreatedAt time.Time
}

func (Contact) TableName() string {
	return "contacts"
}

func (ContactInbox) TableName() string {
	return "contact_inboxes"
}

// UnknownName synthesizes the placeholder display name used when the
// platform profile lookup is not permitted or finds no user.
func UnknownName(kind channel.Kind, sourceID string) string {
	return fmt.Sprintf("Unknown (%s: %s)", kind.ShortLabel(), sourceID)
}

// IsUnknown reports whether the contact still carries a synthesized
// placeholder name, making it a candidate for re-enrichment.
func (c *Contact) IsUnknown() bool {
	return len(c.Name) >= 8 && c.Name[:8] == "Unknown "
}
