package services

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"supporthub/internal/domain/contact"
	"supporthub/internal/domain/conversation"
	"supporthub/internal/domain/message"
	"supporthub/internal/repository"
	"supporthub/internal/storage"
	"supporthub/internal/webhook"
	hub_errors "supporthub/pkg/errors"
	"supporthub/pkg/logger"
)

// MessageBuilder persists messages and their attachments. Inbound
// attachments keep the platform CDN URL; agent uploads are written to the
// blob store and exposed through a derived public URL.
type MessageBuilder struct {
	blobs  storage.BlobStore
	logger *logger.Logger
	now    func() time.Time
}

func NewMessageBuilder(blobs storage.BlobStore, l *logger.Logger) *MessageBuilder {
	return &MessageBuilder{blobs: blobs, logger: l, now: time.Now}
}

// BuildIncoming creates the message for an inbound event inside the
// caller's transaction. It re-checks the source_id one final time and
// returns ErrDuplicateEvent when another worker has already written it.
func (b *MessageBuilder) BuildIncoming(ctx context.Context, store repository.Store, conv conversation.Conversation, ci contact.ContactInbox, ev webhook.InboundEvent) (message.Message, error) {
	msgs := store.Messages()

	// Defense in depth against the race between the guard's check and
	// this write.
	exists, err := msgs.ExistsBySourceID(ctx, conv.InboxID, ev.MessageID)
	if err != nil {
		return message.Message{}, err
	}
	if exists {
		return message.Message{}, hub_errors.ErrDuplicateEvent
	}

	now := b.now()
	m := message.Message{
		ID:             uuid.New(),
		AccountID:      conv.AccountID,
		InboxID:        conv.InboxID,
		ConversationID: conv.ID,
		SourceID:       sql.NullString{String: ev.MessageID, Valid: true},
		Status:         message.StatusSent,
		ContentType:    contentTypeFor(ev),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if ev.Echo {
		m.Type = message.TypeOutgoing
	} else {
		m.Type = message.TypeIncoming
		m.SenderKind = sql.NullString{String: message.SenderContact, Valid: true}
		m.SenderID = uuid.NullUUID{UUID: ci.ContactID, Valid: true}
	}
	if ev.HasText() {
		m.Content = sql.NullString{String: *ev.Text, Valid: true}
	}

	if err := msgs.Create(ctx, &m); err != nil {
		if err == hub_errors.ErrAlreadyExists {
			return message.Message{}, hub_errors.ErrDuplicateEvent
		}
		return message.Message{}, err
	}

	for _, desc := range ev.Attachments {
		att := message.Attachment{
			ID:        uuid.New(),
			AccountID: conv.AccountID,
			MessageID: m.ID,
			FileType:  message.FileTypeFromPlatform(desc.Type),
			CreatedAt: now,
		}
		if desc.URL != "" {
			att.ExternalURL = sql.NullString{String: desc.URL, Valid: true}
		}
		if err := msgs.CreateAttachment(ctx, &att); err != nil {
			// An attachment failure never takes the message down with it.
			b.logger.Errorf("failed to persist attachment for message %s: %v", m.ID, err)
		}
	}

	if err := store.Conversations().TouchLastActivity(ctx, conv.ID, now); err != nil {
		return message.Message{}, err
	}
	return m, nil
}

// AgentAttachment is an agent-uploaded file to attach to an outgoing
// message.
type AgentAttachment struct {
	FileName    string
	ContentType string
	Data        []byte
}

// BuildOutgoing creates an agent-composed message inside the caller's
// transaction. Attachment bytes are stored in the blob store; storage
// failures are isolated per attachment.
func (b *MessageBuilder) BuildOutgoing(ctx context.Context, store repository.Store, conv conversation.Conversation, agentID uuid.UUID, content string, private bool, attachments []AgentAttachment) (message.Message, error) {
	if content == "" && len(attachments) == 0 {
		return message.Message{}, hub_errors.ErrInvalidInput
	}

	now := b.now()
	m := message.Message{
		ID:             uuid.New(),
		AccountID:      conv.AccountID,
		InboxID:        conv.InboxID,
		ConversationID: conv.ID,
		Type:           message.TypeOutgoing,
		Status:         message.StatusInProgress,
		ContentType:    message.ContentTypeText,
		Private:        private,
		SenderKind:     sql.NullString{String: message.SenderAgent, Valid: true},
		SenderID:       uuid.NullUUID{UUID: agentID, Valid: true},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if content != "" {
		m.Content = sql.NullString{String: content, Valid: true}
	} else {
		m.ContentType = message.ContentTypeForFileType(fileTypeForMime(attachments[0].ContentType))
	}

	if err := store.Messages().Create(ctx, &m); err != nil {
		return message.Message{}, err
	}

	for _, upload := range attachments {
		if err := b.storeAgentAttachment(ctx, store, &m, upload); err != nil {
			b.logger.Errorf("failed to store attachment %q for message %s: %v", upload.FileName, m.ID, err)
		}
	}

	if err := store.Conversations().TouchLastActivity(ctx, conv.ID, now); err != nil {
		return message.Message{}, err
	}
	return m, nil
}

func (b *MessageBuilder) storeAgentAttachment(ctx context.Context, store repository.Store, m *message.Message, upload AgentAttachment) error {
	if b.blobs == nil {
		return fmt.Errorf("blob store not configured")
	}
	key := fmt.Sprintf("attachments/%s/%s/%s%s", m.AccountID, m.ID, uuid.New(), path.Ext(upload.FileName))
	if err := b.blobs.Put(ctx, key, upload.ContentType, upload.Data); err != nil {
		return err
	}

	att := message.Attachment{
		ID:          uuid.New(),
		AccountID:   m.AccountID,
		MessageID:   m.ID,
		FileType:    fileTypeForMime(upload.ContentType),
		StorageKey:  sql.NullString{String: key, Valid: true},
		DownloadURL: sql.NullString{String: b.blobs.PublicURL(key), Valid: true},
		MimeType:    sql.NullString{String: upload.ContentType, Valid: true},
		FileSize:    sql.NullInt64{Int64: int64(len(upload.Data)), Valid: true},
		CreatedAt:   b.now(),
	}
	if att.FileType == message.FileTypeImage {
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(upload.Data)); err == nil {
			att.Width = sql.NullInt32{Int32: int32(cfg.Width), Valid: true}
			att.Height = sql.NullInt32{Int32: int32(cfg.Height), Valid: true}
		}
	}
	return store.Messages().CreateAttachment(ctx, &att)
}

// contentTypeFor infers the message content type: text when present,
// otherwise derived from the first attachment.
func contentTypeFor(ev webhook.InboundEvent) string {
	if ev.HasText() {
		return message.ContentTypeText
	}
	if len(ev.Attachments) > 0 {
		return message.ContentTypeForFileType(message.FileTypeFromPlatform(ev.Attachments[0].Type))
	}
	return message.ContentTypeText
}

func fileTypeForMime(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return message.FileTypeImage
	case strings.HasPrefix(mimeType, "video/"):
		return message.FileTypeVideo
	case strings.HasPrefix(mimeType, "audio/"):
		return message.FileTypeAudio
	default:
		return message.FileTypeFile
	}
}
