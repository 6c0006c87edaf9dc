package graph

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"

	"supporthub/internal/platform"
)

const defaultShortLivedTTL = int64(3600)

// ExchangeCode trades an authorization code for a short-lived token.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (platform.Token, error) {
	conf := &oauth2.Config{
		ClientID:     c.cfg.AppID,
		ClientSecret: c.cfg.AppSecret,
		RedirectURL:  redirectURI,
		Endpoint:     facebook.Endpoint,
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return platform.Token{}, fmt.Errorf("authorization code exchange: %w", err)
	}

	expiresIn := defaultShortLivedTTL
	if !tok.Expiry.IsZero() {
		expiresIn = int64(time.Until(tok.Expiry).Seconds())
	}
	return platform.Token{AccessToken: tok.AccessToken, ExpiresIn: expiresIn}, nil
}

type tokenBody struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// ExchangeLongLived trades a short-lived token for a long-lived one.
func (c *Client) ExchangeLongLived(ctx context.Context, shortLivedToken string) (platform.Token, error) {
	q := url.Values{}
	q.Set("grant_type", "fb_exchange_token")
	q.Set("client_id", c.cfg.AppID)
	q.Set("client_secret", c.cfg.AppSecret)
	q.Set("fb_exchange_token", shortLivedToken)
	endpoint := fmt.Sprintf("%s/oauth/access_token?%s", c.cfg.BaseURL, q.Encode())

	var body tokenBody
	if err := c.get(ctx, endpoint, &body); err != nil {
		return platform.Token{}, err
	}
	return platform.Token{AccessToken: body.AccessToken, ExpiresIn: body.ExpiresIn}, nil
}

// RefreshToken extends a still-valid long-lived token by re-exchanging it.
func (c *Client) RefreshToken(ctx context.Context, currentToken string) (platform.Token, error) {
	return c.ExchangeLongLived(ctx, currentToken)
}
