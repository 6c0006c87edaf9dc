package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"supporthub/internal/domain/channel"
	"supporthub/internal/domain/message"
	"supporthub/internal/events"
	"supporthub/internal/platform"
	"supporthub/internal/repository"
	hub_errors "supporthub/pkg/errors"
	"supporthub/pkg/logger"
)

// maxExternalErrorLen bounds the platform error text persisted on a
// failed message.
const maxExternalErrorLen = 1000

// DeliveryService pushes agent-composed messages out through the
// platform send API. It is driven by the task worker, never by request
// handlers.
type DeliveryService struct {
	store   repository.Store
	senders map[channel.Kind]platform.SendAPI
	tokens  *TokenService
	bus     events.Bus
	logger  *logger.Logger
}

func NewDeliveryService(
	store repository.Store,
	senders map[channel.Kind]platform.SendAPI,
	tokens *TokenService,
	bus events.Bus,
	l *logger.Logger,
) *DeliveryService {
	return &DeliveryService{
		store:   store,
		senders: senders,
		tokens:  tokens,
		bus:     bus,
		logger:  l,
	}
}

// Deliver sends one outgoing message. Already-sent messages return
// ErrAlreadySent so retried tasks are no-ops; private notes and inbound
// messages return ErrNotDeliverable.
func (s *DeliveryService) Deliver(ctx context.Context, accountID, messageID uuid.UUID) error {
	m, err := s.store.Messages().GetByID(ctx, accountID, messageID)
	if err != nil {
		return err
	}
	if m.SourceID.Valid {
		return hub_errors.ErrAlreadySent
	}
	if !m.Deliverable() {
		return hub_errors.ErrNotDeliverable
	}

	ch, recipientID, err := s.resolveRoute(ctx, m)
	if err != nil {
		return err
	}
	sender, ok := s.senders[ch.Kind]
	if !ok {
		return fmt.Errorf("no sender configured for %s", ch.Kind)
	}
	token, err := s.tokens.AccessToken(ctx, ch)
	if err != nil {
		return s.fail(ctx, m, err)
	}

	// Attachments go out first, each as its own platform call. A failed
	// attachment is logged and skipped, never aborting the remaining
	// attachments or the text send. The last successful result id becomes
	// the message's source_id.
	attachments, err := s.store.Messages().GetAttachments(ctx, m.ID)
	if err != nil {
		return err
	}
	var lastResult platform.SendResult
	var lastSendErr error
	for _, att := range attachments {
		if !att.DownloadURL.Valid {
			s.logger.Warnf("attachment %s has no public URL, skipping", att.ID)
			continue
		}
		res, sendErr := sender.SendAttachment(ctx, token, recipientID, att.FileType, att.DownloadURL.String)
		if sendErr != nil {
			if s.tokens.HandleAPIError(ctx, ch, sendErr) {
				s.logger.Warnf("channel %s flagged for reauthorization during delivery of %s", ch.ID, m.ID)
			}
			s.logger.Errorf("failed to send attachment %s of message %s: %v", att.ID, m.ID, sendErr)
			lastSendErr = sendErr
			continue
		}
		lastResult = res
	}

	if m.Content.Valid && m.Content.String != "" {
		res, sendErr := sender.SendText(ctx, token, recipientID, m.Content.String)
		if sendErr != nil {
			return s.handleSendError(ctx, m, ch, sendErr)
		}
		lastResult = res
	}

	if lastResult.MessageID == "" {
		if lastSendErr == nil {
			lastSendErr = fmt.Errorf("nothing was sent")
		}
		return s.fail(ctx, m, lastSendErr)
	}
	if err := s.store.Messages().MarkSent(ctx, m.ID, lastResult.MessageID); err != nil {
		return err
	}

	s.bus.Publish(ctx, events.New(events.TypeMessageUpdated, m.AccountID, events.MessagePayload{
		MessageID:      m.ID,
		ConversationID: m.ConversationID,
		InboxID:        m.InboxID,
		MessageType:    m.Type,
		Status:         message.StatusSent,
	}))
	return nil
}

// resolveRoute walks message -> conversation -> contact inbox for the
// platform recipient id, and inbox -> channel for the credential.
func (s *DeliveryService) resolveRoute(ctx context.Context, m message.Message) (channel.Channel, string, error) {
	conv, err := s.store.Conversations().GetByID(ctx, m.AccountID, m.ConversationID)
	if err != nil {
		return channel.Channel{}, "", err
	}
	ci, err := s.store.Contacts().GetContactInboxByID(ctx, conv.ContactInboxID)
	if err != nil {
		return channel.Channel{}, "", err
	}
	ib, err := s.store.Inboxes().GetByID(ctx, m.AccountID, m.InboxID)
	if err != nil {
		return channel.Channel{}, "", err
	}
	ch, err := s.store.Channels().GetByID(ctx, ib.ChannelID)
	if err != nil {
		return channel.Channel{}, "", err
	}
	return ch, ci.SourceID, nil
}

// handleSendError classifies a platform send failure. Token errors flip
// the channel into reauthorization; every failure marks the message
// failed with the truncated platform error.
func (s *DeliveryService) handleSendError(ctx context.Context, m message.Message, ch channel.Channel, sendErr error) error {
	if s.tokens.HandleAPIError(ctx, ch, sendErr) {
		s.logger.Warnf("channel %s flagged for reauthorization during delivery of %s", ch.ID, m.ID)
	}
	return s.fail(ctx, m, sendErr)
}

func (s *DeliveryService) fail(ctx context.Context, m message.Message, cause error) error {
	reason := truncate(cause.Error(), maxExternalErrorLen)
	if err := s.store.Messages().MarkFailed(ctx, m.ID, reason); err != nil {
		s.logger.Errorf("failed to mark message %s failed: %v", m.ID, err)
	}
	s.bus.Publish(ctx, events.New(events.TypeMessageUpdated, m.AccountID, events.MessagePayload{
		MessageID:      m.ID,
		ConversationID: m.ConversationID,
		InboxID:        m.InboxID,
		MessageType:    m.Type,
		Status:         message.StatusFailed,
	}))
	return cause
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
