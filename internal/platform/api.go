package platform

import "context"

// Profile is the subset of platform profile fields the pipeline enriches
// contacts with.
type Profile struct {
	Name          string
	Username      string
	AvatarURL     string
	FollowerCount int
	Verified      bool
}

// Token is a platform access token with its absolute lifetime in seconds.
type Token struct {
	AccessToken string
	ExpiresIn   int64
}

// SendResult carries the platform-assigned id of a sent message.
type SendResult struct {
	MessageID string
}

// ProfileAPI looks up a platform user profile by external id.
type ProfileAPI interface {
	FetchProfile(ctx context.Context, accessToken, externalID string) (Profile, error)
}

// SendAPI delivers outbound messages through the platform. Text and
// attachment sends are separate platform calls.
type SendAPI interface {
	SendText(ctx context.Context, accessToken, recipientID, text string) (SendResult, error)
	SendAttachment(ctx context.Context, accessToken, recipientID, fileType, url string) (SendResult, error)
}

// IdentityAPI resolves the platform account id a token belongs to.
type IdentityAPI interface {
	FetchAccountID(ctx context.Context, accessToken string) (string, error)
}

// OAuthAPI implements the platform token dance: authorization code to
// short-lived token, short-lived to long-lived, and refresh.
type OAuthAPI interface {
	ExchangeCode(ctx context.Context, code, redirectURI string) (Token, error)
	ExchangeLongLived(ctx context.Context, shortLivedToken string) (Token, error)
	RefreshToken(ctx context.Context, currentToken string) (Token, error)
}
