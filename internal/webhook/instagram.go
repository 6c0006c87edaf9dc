package webhook

import "supporthub/internal/domain/channel"

// InstagramNormalizer parses Instagram Messaging webhook bodies.
type InstagramNormalizer struct{}

func NewInstagramNormalizer() *InstagramNormalizer {
	return &InstagramNormalizer{}
}

func (n *InstagramNormalizer) Kind() channel.Kind {
	return channel.KindInstagram
}

func (n *InstagramNormalizer) Normalize(body []byte) ([]InboundEvent, error) {
	return parseMetaEnvelope(body, "instagram")
}
