package httpdto

import (
	"time"

	"github.com/google/uuid"

	"supporthub/internal/domain/message"
)

// ReplyRequest is an agent reply to a conversation. Attachment data is
// base64 in transit; gin decodes []byte fields from base64 JSON strings.
type ReplyRequest struct {
	Content     string             `json:"content"`
	Private     bool               `json:"private"`
	Attachments []AttachmentUpload `json:"attachments"`
}

type AttachmentUpload struct {
	FileName    string `json:"file_name" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
	Data        []byte `json:"data" binding:"required"`
}

// MessageView is the wire shape of a message.
type MessageView struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	InboxID        uuid.UUID `json:"inbox_id"`
	Type           string    `json:"type"`
	Status         string    `json:"status"`
	Content        string    `json:"content,omitempty"`
	ContentType    string    `json:"content_type"`
	Private        bool      `json:"private"`
	SenderKind     string    `json:"sender_kind,omitempty"`
	SenderID       string    `json:"sender_id,omitempty"`
	ExternalError  string    `json:"external_error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func NewMessageView(m message.Message) MessageView {
	v := MessageView{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		InboxID:        m.InboxID,
		Type:           m.Type,
		Status:         m.Status,
		ContentType:    m.ContentType,
		Private:        m.Private,
		CreatedAt:      m.CreatedAt,
	}
	if m.Content.Valid {
		v.Content = m.Content.String
	}
	if m.SenderKind.Valid {
		v.SenderKind = m.SenderKind.String
	}
	if m.SenderID.Valid {
		v.SenderID = m.SenderID.UUID.String()
	}
	if m.ExternalError.Valid {
		v.ExternalError = m.ExternalError.String
	}
	return v
}
