package webhook

import "time"

// AttachmentDescriptor is a platform attachment reference: its platform
// type string and the CDN URL the platform hosts it at.
type AttachmentDescriptor struct {
	Type string
	URL  string
}

// InboundEvent is the canonical form of one platform webhook messaging
// event. Fields that may be absent in the raw payload are pointers or
// empty values; parsing never fails on missing nested keys.
type InboundEvent struct {
	SenderID    string
	RecipientID string

	// Echo marks a message the business itself sent, replayed back by the
	// platform. Echoed messages correlate to the recipient id.
	Echo bool

	MessageID   string
	Text        *string
	Attachments []AttachmentDescriptor

	DeliveryWatermark *int64
	ReadWatermark     *int64

	ReplyToID *string

	Timestamp time.Time
}

// ContactSourceID is the external identifier the event's contact resolves
// through: the recipient for echoes, the sender otherwise.
func (e *InboundEvent) ContactSourceID() string {
	if e.Echo {
		return e.RecipientID
	}
	return e.SenderID
}

// HasText reports whether the event carries non-empty text content.
func (e *InboundEvent) HasText() bool {
	return e.Text != nil && *e.Text != ""
}

// IsReceipt reports whether the event is a delivery/read watermark with no
// message body.
func (e *InboundEvent) IsReceipt() bool {
	return e.MessageID == "" && (e.DeliveryWatermark != nil || e.ReadWatermark != nil)
}
