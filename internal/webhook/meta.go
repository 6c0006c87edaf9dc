package webhook

import (
	"encoding/json"
	"time"
)

// Wire structs for Meta-style webhook bodies (Messenger and Instagram
// share the envelope shape). Every nested field is optional; absent keys
// simply stay zero.

type metaEnvelope struct {
	Object string      `json:"object"`
	Entry  []metaEntry `json:"entry"`
}

type metaEntry struct {
	ID        string               `json:"id"`
	Time      int64                `json:"time"`
	Messaging []metaMessagingEvent `json:"messaging"`
}

type metaMessagingEvent struct {
	Sender    *metaParty   `json:"sender"`
	Recipient *metaParty   `json:"recipient"`
	Timestamp int64        `json:"timestamp"`
	Message   *metaMessage `json:"message"`
	Delivery  *metaReceipt `json:"delivery"`
	Read      *metaReceipt `json:"read"`
}

type metaParty struct {
	ID string `json:"id"`
}

type metaMessage struct {
	MID         string           `json:"mid"`
	Text        string           `json:"text"`
	IsEcho      bool             `json:"is_echo"`
	IsDeleted   bool             `json:"is_deleted"`
	ReplyTo     *metaReplyTo     `json:"reply_to"`
	Attachments []metaAttachment `json:"attachments"`
}

type metaReplyTo struct {
	MID string `json:"mid"`
}

type metaAttachment struct {
	Type    string `json:"type"`
	Payload *struct {
		URL string `json:"url"`
	} `json:"payload"`
}

type metaReceipt struct {
	Watermark int64 `json:"watermark"`
}

// parseMetaEnvelope flattens a Meta webhook body into canonical events.
// Events with no usable content (deleted messages, empty messaging
// entries) are skipped rather than failing the batch.
func parseMetaEnvelope(body []byte, wantObject string) ([]InboundEvent, error) {
	var env metaEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, ErrMalformedPayload
	}
	if wantObject != "" && env.Object != "" && env.Object != wantObject {
		return nil, ErrMalformedPayload
	}

	var out []InboundEvent
	for _, entry := range env.Entry {
		for _, ev := range entry.Messaging {
			if ev.Message != nil && ev.Message.IsDeleted {
				continue
			}
			ie := InboundEvent{}
			if ev.Sender != nil {
				ie.SenderID = ev.Sender.ID
			}
			if ev.Recipient != nil {
				ie.RecipientID = ev.Recipient.ID
			}
			if ev.Timestamp > 0 {
				ie.Timestamp = time.UnixMilli(ev.Timestamp)
			}
			if msg := ev.Message; msg != nil {
				ie.MessageID = msg.MID
				ie.Echo = msg.IsEcho
				if msg.Text != "" {
					text := msg.Text
					ie.Text = &text
				}
				if msg.ReplyTo != nil && msg.ReplyTo.MID != "" {
					mid := msg.ReplyTo.MID
					ie.ReplyToID = &mid
				}
				for _, att := range msg.Attachments {
					desc := AttachmentDescriptor{Type: att.Type}
					if att.Payload != nil {
						desc.URL = att.Payload.URL
					}
					ie.Attachments = append(ie.Attachments, desc)
				}
			}
			if ev.Delivery != nil && ev.Delivery.Watermark > 0 {
				w := ev.Delivery.Watermark
				ie.DeliveryWatermark = &w
			}
			if ev.Read != nil && ev.Read.Watermark > 0 {
				w := ev.Read.Watermark
				ie.ReadWatermark = &w
			}
			out = append(out, ie)
		}
	}
	return out, nil
}
