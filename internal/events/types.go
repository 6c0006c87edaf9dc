package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event type constants, format: domain.action
type Type string

const (
	TypeMessageCreated         Type = "message.created"
	TypeMessageUpdated         Type = "message.updated"
	TypeConversationCreated    Type = "conversation.created"
	TypeChannelReauthorization Type = "channel.reauthorization_required"
)

// Event is the envelope published to downstream listeners (webhook
// fan-out, real-time push). Events are account-scoped.
type Event struct {
	Type       Type            `json:"type"`
	AccountID  uuid.UUID       `json:"account_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

func New(t Type, accountID uuid.UUID, payload interface{}) Event {
	data, _ := json.Marshal(payload)
	return Event{
		Type:       t,
		AccountID:  accountID,
		OccurredAt: time.Now(),
		Payload:    data,
	}
}

// MessagePayload accompanies message.* events.
type MessagePayload struct {
	MessageID      uuid.UUID `json:"message_id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	InboxID        uuid.UUID `json:"inbox_id"`
	MessageType    string    `json:"message_type"`
	Status         string    `json:"status"`
}

// ConversationPayload accompanies conversation.created events.
type ConversationPayload struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	InboxID        uuid.UUID `json:"inbox_id"`
	ContactID      uuid.UUID `json:"contact_id"`
	DisplayID      int64     `json:"display_id"`
}

// ChannelPayload accompanies channel.* events.
type ChannelPayload struct {
	ChannelID uuid.UUID `json:"channel_id"`
	Kind      string    `json:"kind"`
}

// Handler consumes one event. Handlers run on the bus goroutine's
// dispatch workers and must not block indefinitely.
type Handler func(ctx context.Context, event Event)

// Bus publishes events to downstream listeners.
type Bus interface {
	Publish(ctx context.Context, event Event) error
}

// NopBus discards all events. Used in tests.
type NopBus struct{}

func (NopBus) Publish(ctx context.Context, event Event) error { return nil }
