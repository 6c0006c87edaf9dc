package channel

import (
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind identifies the platform a channel connects to.
type Kind string

const (
	KindInstagram Kind = "instagram"
	KindMessenger Kind = "messenger"
)

func (k Kind) String() string {
	return string(k)
}

// ShortLabel is the human-facing tag used when synthesizing contact
// names for senders whose profile could not be fetched.
func (k Kind) ShortLabel() string {
	switch k {
	case KindInstagram:
		return "IG"
	case KindMessenger:
		return "FB"
	default:
		return strings.ToUpper(string(k))
	}
}

// TempIDPrefix marks placeholder channels created at inbox-creation time,
// before the OAuth callback has populated real credentials.
const TempIDPrefix = "temp:"

// Channel represents the channels table: the platform credential and
// identity bundle backing one inbox.
type Channel struct {
	ID         uuid.UUID
	AccountID  uuid.UUID
	Kind       Kind
	ExternalID string // platform-side account id, "temp:"-prefixed until OAuth completes

	AccessToken      sql.NullString
	TokenExpiresAt   sql.NullTime
	TokenRefreshedAt sql.NullTime

	ReauthorizationRequired bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Channel) TableName() string {
	return "channels"
}

// IsTemporary reports whether this channel is still a placeholder.
func (c *Channel) IsTemporary() bool {
	return strings.HasPrefix(c.ExternalID, TempIDPrefix)
}

// Authorized reports whether the channel can be used for platform calls.
func (c *Channel) Authorized() bool {
	return !c.IsTemporary() && c.AccessToken.Valid && c.AccessToken.String != "" && !c.ReauthorizationRequired
}

// TokenValid reports whether the stored token is present and unexpired.
func (c *Channel) TokenValid(now time.Time) bool {
	if !c.AccessToken.Valid || c.AccessToken.String == "" {
		return false
	}
	if !c.TokenExpiresAt.Valid {
		return true
	}
	return now.Before(c.TokenExpiresAt.Time)
}

const (
	refreshMinAge  = 24 * time.Hour
	refreshHorizon = 10 * 24 * time.Hour
)

// RefreshEligible reports whether the token should be proactively refreshed:
// still valid, held for at least 24h, and expiring within the next 10 days.
func (c *Channel) RefreshEligible(now time.Time) bool {
	if !c.TokenValid(now) {
		return false
	}
	if !c.TokenRefreshedAt.Valid || now.Sub(c.TokenRefreshedAt.Time) < refreshMinAge {
		return false
	}
	if !c.TokenExpiresAt.Valid {
		return false
	}
	return c.TokenExpiresAt.Time.Sub(now) <= refreshHorizon
}
