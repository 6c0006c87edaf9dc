package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"supporthub/internal/domain/channel"
	"supporthub/internal/events"
	"supporthub/internal/platform"
	"supporthub/internal/repository"
	hub_errors "supporthub/pkg/errors"
	"supporthub/pkg/logger"
)

// TokenService owns the channel token lifecycle: the OAuth callback
// exchange dance, lazy refresh on token reads, and the flip to
// reauthorization-required when a platform call reports a 190-class error.
type TokenService struct {
	store  repository.Store
	oauth  map[channel.Kind]platform.OAuthAPI
	bus    events.Bus
	logger *logger.Logger
	now    func() time.Time
}

func NewTokenService(store repository.Store, oauth map[channel.Kind]platform.OAuthAPI, bus events.Bus, l *logger.Logger) *TokenService {
	if bus == nil {
		bus = events.NopBus{}
	}
	return &TokenService{
		store:  store,
		oauth:  oauth,
		bus:    bus,
		logger: l,
		now:    time.Now,
	}
}

// CompleteAuthorization finishes the OAuth callback for a channel:
// code -> short-lived token, then (except for the Facebook-style flow)
// short-lived -> long-lived. Persisting the token clears any
// reauthorization flag and replaces a placeholder external id.
func (s *TokenService) CompleteAuthorization(ctx context.Context, channelID uuid.UUID, code, redirectURI, externalID string) (channel.Channel, error) {
	ch, err := s.store.Channels().GetByID(ctx, channelID)
	if err != nil {
		return channel.Channel{}, err
	}

	api, ok := s.oauth[ch.Kind]
	if !ok {
		return channel.Channel{}, hub_errors.ErrInvalidInput
	}

	tok, err := api.ExchangeCode(ctx, code, redirectURI)
	if err != nil {
		return channel.Channel{}, err
	}

	// Messenger tokens are already usable after the first exchange; the
	// Instagram flow needs the long-lived upgrade.
	if ch.Kind != channel.KindMessenger {
		tok, err = api.ExchangeLongLived(ctx, tok.AccessToken)
		if err != nil {
			return channel.Channel{}, err
		}
	}

	// Callers that do not know the platform account id yet (the plain
	// OAuth callback) leave externalID empty, and we ask the platform.
	if externalID == "" {
		if ident, ok := api.(platform.IdentityAPI); ok {
			id, err := ident.FetchAccountID(ctx, tok.AccessToken)
			if err != nil {
				return channel.Channel{}, err
			}
			externalID = id
		}
	}

	now := s.now()
	ch.AccessToken = sql.NullString{String: tok.AccessToken, Valid: true}
	ch.TokenExpiresAt = sql.NullTime{Time: now.Add(time.Duration(tok.ExpiresIn) * time.Second), Valid: true}
	ch.TokenRefreshedAt = sql.NullTime{Time: now, Valid: true}
	ch.ReauthorizationRequired = false
	if externalID != "" {
		ch.ExternalID = externalID
	}
	if err := s.store.Channels().Update(ctx, ch); err != nil {
		return channel.Channel{}, err
	}

	s.logger.Infof("channel %s authorized (kind=%s)", ch.ID, ch.Kind)
	return ch, nil
}

// AccessToken returns a usable token for the channel, refreshing it
// opportunistically when eligible. Refresh failure is never fatal while
// the current token remains valid.
func (s *TokenService) AccessToken(ctx context.Context, ch channel.Channel) (string, error) {
	if ch.IsTemporary() || ch.ReauthorizationRequired {
		return "", hub_errors.ErrReauthorizationRequired
	}
	now := s.now()
	if !ch.TokenValid(now) {
		if err := s.FlagReauthorization(ctx, ch); err != nil {
			s.logger.Errorf("failed to flag channel %s for reauthorization: %v", ch.ID, err)
		}
		return "", hub_errors.ErrTokenExpired
	}

	if ch.RefreshEligible(now) {
		if refreshed, err := s.refresh(ctx, ch); err != nil {
			s.logger.Warnf("token refresh failed for channel %s, serving current token: %v", ch.ID, err)
		} else {
			return refreshed, nil
		}
	}
	return ch.AccessToken.String, nil
}

func (s *TokenService) refresh(ctx context.Context, ch channel.Channel) (string, error) {
	api, ok := s.oauth[ch.Kind]
	if !ok {
		return "", hub_errors.ErrInvalidInput
	}
	tok, err := api.RefreshToken(ctx, ch.AccessToken.String)
	if err != nil {
		return "", err
	}
	now := s.now()
	expiresAt := now.Add(time.Duration(tok.ExpiresIn) * time.Second)
	if err := s.store.Channels().UpdateToken(ctx, ch.ID, tok.AccessToken, expiresAt, now); err != nil {
		return "", err
	}
	s.logger.Infof("refreshed token for channel %s, new expiry %s", ch.ID, expiresAt)
	return tok.AccessToken, nil
}

// HandleAPIError inspects a platform error and flips the channel to
// reauthorization-required on a token-invalid class. Returns true when
// the channel was flipped.
func (s *TokenService) HandleAPIError(ctx context.Context, ch channel.Channel, err error) bool {
	if !platform.IsTokenInvalid(err) {
		return false
	}
	if flagErr := s.FlagReauthorization(ctx, ch); flagErr != nil {
		s.logger.Errorf("failed to flag channel %s for reauthorization: %v", ch.ID, flagErr)
	}
	return true
}

// FlagReauthorization marks the channel as needing a new OAuth flow and
// notifies operators through the event bus.
func (s *TokenService) FlagReauthorization(ctx context.Context, ch channel.Channel) error {
	if err := s.store.Channels().SetReauthorizationRequired(ctx, ch.ID, true); err != nil {
		return err
	}
	s.logger.Warnf("channel %s (kind=%s) requires reauthorization", ch.ID, ch.Kind)
	if err := s.bus.Publish(ctx, events.New(events.TypeChannelReauthorization, ch.AccountID, events.ChannelPayload{
		ChannelID: ch.ID,
		Kind:      ch.Kind.String(),
	})); err != nil {
		s.logger.Errorf("failed to publish reauthorization event: %v", err)
	}
	return nil
}
