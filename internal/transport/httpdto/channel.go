package httpdto

import (
	"time"

	"github.com/google/uuid"

	"supporthub/internal/domain/channel"
)

// ChannelView is the wire shape of a channel after authorization. The
// access token never leaves the service.
type ChannelView struct {
	ID                      uuid.UUID  `json:"id"`
	Kind                    string     `json:"kind"`
	ExternalID              string     `json:"external_id"`
	ReauthorizationRequired bool       `json:"reauthorization_required"`
	TokenExpiresAt          *time.Time `json:"token_expires_at,omitempty"`
}

func NewChannelView(ch channel.Channel) ChannelView {
	v := ChannelView{
		ID:                      ch.ID,
		Kind:                    ch.Kind.String(),
		ExternalID:              ch.ExternalID,
		ReauthorizationRequired: ch.ReauthorizationRequired,
	}
	if ch.TokenExpiresAt.Valid {
		t := ch.TokenExpiresAt.Time
		v.TokenExpiresAt = &t
	}
	return v
}
