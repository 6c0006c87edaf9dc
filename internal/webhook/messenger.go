package webhook

import "supporthub/internal/domain/channel"

// MessengerNormalizer parses Facebook Messenger (page) webhook bodies.
type MessengerNormalizer struct{}

func NewMessengerNormalizer() *MessengerNormalizer {
	return &MessengerNormalizer{}
}

func (n *MessengerNormalizer) Kind() channel.Kind {
	return channel.KindMessenger
}

func (n *MessengerNormalizer) Normalize(body []byte) ([]InboundEvent, error) {
	return parseMetaEnvelope(body, "page")
}
