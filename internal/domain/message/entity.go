package message

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Message represents the messages table. SourceID is the platform-assigned
// external message id and the sole inbound deduplication key; it is unique
// per inbox.
type Message struct {
	ID             uuid.UUID
	AccountID      uuid.UUID
	InboxID        uuid.UUID
	ConversationID uuid.UUID

	SourceID sql.NullString

	Type        string
	Status      string
	Content     sql.NullString
	ContentType string
	Private     bool

	SenderKind sql.NullString
	SenderID   uuid.NullUUID

	// Truncated human-readable platform error, set when delivery fails.
	ExternalError sql.NullString

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Attachment represents the attachments table. Inbound attachments keep
// pointing at the platform CDN (ExternalURL only); outbound agent uploads
// additionally carry stored bytes (StorageKey, DownloadURL, sizes).
type Attachment struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	MessageID uuid.UUID

	FileType    string
	ExternalURL sql.NullString

	StorageKey  sql.NullString
	DownloadURL sql.NullString
	MimeType    sql.NullString
	FileSize    sql.NullInt64
	Width       sql.NullInt32
	Height      sql.NullInt32

	CreatedAt time.Time
}

func (Message) TableName() string {
	return "messages"
}

func (Attachment) TableName() string {
	return "attachments"
}

// Deliverable reports whether an outbound send may be attempted: the
// message must be outgoing, non-private, and not yet correlated with a
// platform message id.
func (m *Message) Deliverable() bool {
	return m.Type == TypeOutgoing && !m.Private && !m.SourceID.Valid
}
