package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"supporthub/internal/domain/channel"
	"supporthub/internal/domain/contact"
	"supporthub/internal/domain/conversation"
	"supporthub/internal/domain/inbox"
	"supporthub/internal/domain/message"
	"supporthub/internal/domain/task"
)

type ChannelRepository interface {
	Create(ctx context.Context, c *channel.Channel) error
	GetByID(ctx context.Context, id uuid.UUID) (channel.Channel, error)
	GetByExternalID(ctx context.Context, kind channel.Kind, externalID string) (channel.Channel, error)
	Update(ctx context.Context, c channel.Channel) error
	UpdateToken(ctx context.Context, id uuid.UUID, token string, expiresAt, refreshedAt time.Time) error
	SetReauthorizationRequired(ctx context.Context, id uuid.UUID, required bool) error
}

type InboxRepository interface {
	Create(ctx context.Context, i *inbox.Inbox) error
	GetByID(ctx context.Context, accountID, id uuid.UUID) (inbox.Inbox, error)
	GetByChannel(ctx context.Context, kind channel.Kind, channelID uuid.UUID) (inbox.Inbox, error)
}

type ContactRepository interface {
	Create(ctx context.Context, c *contact.Contact) error
	GetByID(ctx context.Context, accountID, id uuid.UUID) (contact.Contact, error)
	Update(ctx context.Context, c contact.Contact) error
	CreateContactInbox(ctx context.Context, ci *contact.ContactInbox) error
	GetContactInboxByID(ctx context.Context, id uuid.UUID) (contact.ContactInbox, error)
	GetContactInboxBySourceID(ctx context.Context, inboxID uuid.UUID, sourceID string) (contact.ContactInbox, error)
}

type ConversationRepository interface {
	Create(ctx context.Context, c *conversation.Conversation) error
	GetByID(ctx context.Context, accountID, id uuid.UUID) (conversation.Conversation, error)
	GetByDisplayID(ctx context.Context, accountID uuid.UUID, displayID int64) (conversation.Conversation, error)
	// GetLatestForContact returns the most recently created conversation for
	// the contact in the inbox, regardless of status.
	GetLatestForContact(ctx context.Context, accountID, inboxID, contactID uuid.UUID) (conversation.Conversation, error)
	Update(ctx context.Context, c conversation.Conversation) error
	TouchLastActivity(ctx context.Context, id uuid.UUID, at time.Time) error
	// NextDisplayID computes max(display_id)+1 for the account. Must be
	// called inside the same transaction as the conversation insert.
	NextDisplayID(ctx context.Context, accountID uuid.UUID) (int64, error)
}

type MessageRepository interface {
	Create(ctx context.Context, m *message.Message) error
	GetByID(ctx context.Context, accountID, id uuid.UUID) (message.Message, error)
	GetBySourceID(ctx context.Context, inboxID uuid.UUID, sourceID string) (message.Message, error)
	ExistsBySourceID(ctx context.Context, inboxID uuid.UUID, sourceID string) (bool, error)
	Update(ctx context.Context, m message.Message) error
	MarkSent(ctx context.Context, id uuid.UUID, sourceID string) error
	MarkFailed(ctx context.Context, id uuid.UUID, externalError string) error
	// UpdateOutgoingStatusUpTo advances delivery status for outgoing
	// messages created at or before the watermark. Status only moves
	// forward (sent -> delivered -> read).
	UpdateOutgoingStatusUpTo(ctx context.Context, conversationID uuid.UUID, status string, upTo time.Time) (int64, error)
	CreateAttachment(ctx context.Context, a *message.Attachment) error
	GetAttachments(ctx context.Context, messageID uuid.UUID) ([]message.Attachment, error)
}

type TaskRepository interface {
	Enqueue(ctx context.Context, t *task.Task) error
	GetPending(ctx context.Context, limit int) ([]task.Task, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkCompleted(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	IncrementRetry(ctx context.Context, id uuid.UUID) error
}

// Store bundles the repositories behind one transactional boundary.
// Transaction runs fn against a store whose repositories share one
// database transaction; fn returning an error rolls everything back.
type Store interface {
	Channels() ChannelRepository
	Inboxes() InboxRepository
	Contacts() ContactRepository
	Conversations() ConversationRepository
	Messages() MessageRepository
	Tasks() TaskRepository
	Transaction(ctx context.Context, fn func(Store) error) error
}
