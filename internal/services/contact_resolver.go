package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"supporthub/internal/domain/channel"
	"supporthub/internal/domain/contact"
	"supporthub/internal/domain/inbox"
	"supporthub/internal/platform"
	"supporthub/internal/repository"
	"supporthub/internal/webhook"
	hub_errors "supporthub/pkg/errors"
	"supporthub/pkg/logger"
)

const profileLookupAttempts = 3

// ContactResolver resolves the sending identity of an inbound event,
// creating the contact and its contact-inbox row on first contact and
// enriching it from the platform profile API.
type ContactResolver struct {
	store    repository.Store
	profiles map[channel.Kind]platform.ProfileAPI
	tokens   *TokenService
	logger   *logger.Logger

	// backoff returns the wait before retry attempt n (1-based).
	// Overridable in tests.
	backoff func(attempt int) time.Duration
}

func NewContactResolver(store repository.Store, profiles map[channel.Kind]platform.ProfileAPI, tokens *TokenService, l *logger.Logger) *ContactResolver {
	return &ContactResolver{
		store:    store,
		profiles: profiles,
		tokens:   tokens,
		logger:   l,
		backoff: func(attempt int) time.Duration {
			return time.Duration(1<<(attempt-1)) * time.Second
		},
	}
}

// Resolve returns the contact and contact-inbox for the event's external
// identifier, creating both when this is a first contact.
func (r *ContactResolver) Resolve(ctx context.Context, ch channel.Channel, ib inbox.Inbox, ev webhook.InboundEvent) (contact.Contact, contact.ContactInbox, error) {
	sourceID := ev.ContactSourceID()
	if sourceID == "" {
		return contact.Contact{}, contact.ContactInbox{}, hub_errors.ErrMissingIdentifier
	}

	ci, err := r.store.Contacts().GetContactInboxBySourceID(ctx, ib.ID, sourceID)
	if err == nil {
		c, err := r.store.Contacts().GetByID(ctx, ib.AccountID, ci.ContactID)
		if err != nil {
			return contact.Contact{}, contact.ContactInbox{}, err
		}
		// A contact stored under a synthesized name gets another chance at
		// a real profile whenever it shows up again.
		if c.IsUnknown() {
			r.reattemptNaming(ctx, ch, &c, sourceID)
		}
		return c, ci, nil
	}
	if !errors.Is(err, hub_errors.ErrNotFound) {
		return contact.Contact{}, contact.ContactInbox{}, err
	}

	return r.createContact(ctx, ch, ib, sourceID)
}

func (r *ContactResolver) createContact(ctx context.Context, ch channel.Channel, ib inbox.Inbox, sourceID string) (contact.Contact, contact.ContactInbox, error) {
	profile, ok := r.lookupProfile(ctx, ch, sourceID)

	now := time.Now()
	c := contact.Contact{
		ID:         uuid.New(),
		AccountID:  ib.AccountID,
		Attributes: "{}",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if ok {
		applyProfile(&c, profile)
	} else {
		c.Name = contact.UnknownName(ch.Kind, sourceID)
	}

	if err := r.store.Contacts().Create(ctx, &c); err != nil {
		return contact.Contact{}, contact.ContactInbox{}, err
	}

	ci := contact.ContactInbox{
		ID:        uuid.New(),
		ContactID: c.ID,
		InboxID:   ib.ID,
		SourceID:  sourceID,
		CreatedAt: now,
	}
	if err := r.store.Contacts().CreateContactInbox(ctx, &ci); err != nil {
		if errors.Is(err, hub_errors.ErrAlreadyExists) {
			// A concurrent event for the same sender won the race; adopt
			// its row and let the orphaned contact be garbage-collected.
			existing, readErr := r.store.Contacts().GetContactInboxBySourceID(ctx, ib.ID, sourceID)
			if readErr != nil {
				return contact.Contact{}, contact.ContactInbox{}, readErr
			}
			winner, readErr := r.store.Contacts().GetByID(ctx, ib.AccountID, existing.ContactID)
			if readErr != nil {
				return contact.Contact{}, contact.ContactInbox{}, readErr
			}
			return winner, existing, nil
		}
		return contact.Contact{}, contact.ContactInbox{}, err
	}

	r.logger.Infof("created contact %s (%s) for inbox %s", c.ID, c.Name, ib.ID)
	return c, ci, nil
}

// lookupProfile fetches the platform profile with bounded retries.
// Returns ok=false for every failure mode that falls back to the
// synthesized unknown identity.
func (r *ContactResolver) lookupProfile(ctx context.Context, ch channel.Channel, sourceID string) (platform.Profile, bool) {
	api, registered := r.profiles[ch.Kind]
	if !registered {
		return platform.Profile{}, false
	}
	if !ch.Authorized() {
		r.logger.Infof("skipping profile lookup for channel %s: not authorized", ch.ID)
		return platform.Profile{}, false
	}

	token, err := r.tokens.AccessToken(ctx, ch)
	if err != nil {
		r.logger.Warnf("skipping profile lookup for channel %s: %v", ch.ID, err)
		return platform.Profile{}, false
	}

	var lastErr error
	for attempt := 1; attempt <= profileLookupAttempts; attempt++ {
		profile, err := api.FetchProfile(ctx, token, sourceID)
		if err == nil {
			return profile, true
		}
		lastErr = err

		if r.tokens.HandleAPIError(ctx, ch, err) {
			// Token-invalid is definitive; enrichment is aborted and the
			// message proceeds with the unknown identity.
			return platform.Profile{}, false
		}
		if platform.IsProfileUnavailable(err) {
			r.logger.Infof("profile unavailable for %s on channel %s: %v", sourceID, ch.ID, err)
			return platform.Profile{}, false
		}
		if attempt < profileLookupAttempts {
			select {
			case <-ctx.Done():
				return platform.Profile{}, false
			case <-time.After(r.backoff(attempt)):
			}
		}
	}

	r.logger.Warnf("profile lookup for %s failed after %d attempts: %v", sourceID, profileLookupAttempts, lastErr)
	return platform.Profile{}, false
}

// reattemptNaming opportunistically replaces a synthesized name once the
// real profile becomes fetchable. Failures are swallowed.
func (r *ContactResolver) reattemptNaming(ctx context.Context, ch channel.Channel, c *contact.Contact, sourceID string) {
	profile, ok := r.lookupProfile(ctx, ch, sourceID)
	if !ok || profile.Name == "" {
		return
	}
	if !applyProfile(c, profile) {
		return
	}
	if err := r.store.Contacts().Update(ctx, *c); err != nil {
		r.logger.Warnf("failed to re-enrich contact %s: %v", c.ID, err)
	}
}

// applyProfile copies profile fields onto the contact, reporting whether
// anything actually changed. Unchanged fields are not rewritten.
func applyProfile(c *contact.Contact, p platform.Profile) bool {
	changed := false
	name := p.Name
	if name == "" {
		name = p.Username
	}
	if name != "" && c.Name != name {
		c.Name = name
		changed = true
	}
	if p.AvatarURL != "" && (!c.AvatarURL.Valid || c.AvatarURL.String != p.AvatarURL) {
		c.AvatarURL = sql.NullString{String: p.AvatarURL, Valid: true}
		changed = true
	}
	attrs, _ := json.Marshal(map[string]interface{}{
		"username":       p.Username,
		"follower_count": p.FollowerCount,
		"verified":       p.Verified,
	})
	if c.Attributes != string(attrs) {
		c.Attributes = string(attrs)
		changed = true
	}
	return changed
}
