package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"supporthub/internal/domain/channel"
	"supporthub/internal/domain/contact"
	"supporthub/internal/domain/conversation"
	"supporthub/internal/domain/inbox"
	"supporthub/internal/domain/message"
	"supporthub/internal/events"
	"supporthub/internal/repository"
	"supporthub/internal/webhook"
	hub_errors "supporthub/pkg/errors"
	"supporthub/pkg/logger"
)

// InFlightStore is the atomic claim on a (inbox, source_id) pair while an
// inbound event is being processed.
type InFlightStore interface {
	MarkInFlight(ctx context.Context, inboxID uuid.UUID, sourceID string) (bool, error)
	ClearInFlight(ctx context.Context, inboxID uuid.UUID, sourceID string) error
}

// IngestService runs the inbound pipeline: normalize, locate the channel
// and inbox, claim the source_id, resolve contact and conversation, and
// persist the message. Every fallible step past normalization is absorbed
// per event so one bad entry never blocks the rest of a batch.
type IngestService struct {
	store         repository.Store
	registry      *webhook.Registry
	contacts      *ContactResolver
	conversations *ConversationResolver
	builder       *MessageBuilder
	guard         InFlightStore
	bus           events.Bus
	logger        *logger.Logger

	wg sync.WaitGroup
}

func NewIngestService(
	store repository.Store,
	registry *webhook.Registry,
	contacts *ContactResolver,
	conversations *ConversationResolver,
	builder *MessageBuilder,
	guard InFlightStore,
	bus events.Bus,
	l *logger.Logger,
) *IngestService {
	return &IngestService{
		store:         store,
		registry:      registry,
		contacts:      contacts,
		conversations: conversations,
		builder:       builder,
		guard:         guard,
		bus:           bus,
		logger:        l,
	}
}

// Ingest parses a raw webhook body for the given platform and hands the
// events to a background goroutine. Only an unparseable body is an
// error; the handler acks the batch before any event is processed, so
// contact-profile retries and their backoff never hold a webhook
// connection. Per-event failures are logged and swallowed so the
// platform never retries the whole batch because of one entry.
func (s *IngestService) Ingest(ctx context.Context, kind channel.Kind, body []byte) error {
	n, ok := s.registry.Get(kind)
	if !ok {
		return hub_errors.ErrInvalidInput
	}
	evs, err := n.Normalize(body)
	if err != nil {
		return err
	}

	// The request context is cancelled as soon as the handler acks;
	// processing continues on a detached context.
	detached := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for _, ev := range evs {
			if err := s.processEvent(detached, kind, ev); err != nil {
				s.logger.Errorf("failed to process %s event (sender=%s message=%s): %v",
					kind, ev.SenderID, ev.MessageID, err)
			}
		}
	}()
	return nil
}

// Wait blocks until every accepted batch has finished processing. Called
// on shutdown, after the HTTP server has stopped accepting webhooks.
func (s *IngestService) Wait() {
	s.wg.Wait()
}

func (s *IngestService) processEvent(ctx context.Context, kind channel.Kind, ev webhook.InboundEvent) error {
	ch, ib, err := s.locateInbox(ctx, kind, ev)
	if err != nil {
		if err == hub_errors.ErrNotFound {
			s.logger.Warnf("no %s channel for recipient %s, dropping event", kind, businessSourceID(ev))
			return nil
		}
		return err
	}

	if ev.IsReceipt() {
		return s.applyReceipt(ctx, ib, ev)
	}
	if ev.MessageID == "" {
		// Reactions, postbacks and other non-message events.
		return nil
	}

	claimed, err := s.guard.MarkInFlight(ctx, ib.ID, ev.MessageID)
	if err != nil {
		return err
	}
	if !claimed {
		s.logger.Infof("source_id %s already in flight for inbox %s, dropping event", ev.MessageID, ib.ID)
		return nil
	}
	defer func() {
		if err := s.guard.ClearInFlight(context.WithoutCancel(ctx), ib.ID, ev.MessageID); err != nil {
			s.logger.Warnf("failed to clear in-flight marker for %s: %v", ev.MessageID, err)
		}
	}()

	exists, err := s.store.Messages().ExistsBySourceID(ctx, ib.ID, ev.MessageID)
	if err != nil {
		return err
	}
	if exists {
		s.logger.Infof("source_id %s already processed for inbox %s, dropping event", ev.MessageID, ib.ID)
		return nil
	}

	// Contact resolution may call the platform profile API, so it stays
	// outside the write transaction.
	_, ci, err := s.contacts.Resolve(ctx, ch, ib, ev)
	if err != nil {
		return err
	}

	var (
		conv    conversation.Conversation
		created bool
		msg     message.Message
	)
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		var txErr error
		conv, created, txErr = s.conversations.Resolve(ctx, tx, ib, ci)
		if txErr != nil {
			return txErr
		}
		msg, txErr = s.builder.BuildIncoming(ctx, tx, conv, ci, ev)
		return txErr
	})
	if err != nil {
		if err == hub_errors.ErrDuplicateEvent {
			return nil
		}
		return err
	}

	s.publishCreated(ctx, conv, ci, created, msg)
	return nil
}

// locateInbox resolves the business-side id of the event to its channel
// and inbox.
func (s *IngestService) locateInbox(ctx context.Context, kind channel.Kind, ev webhook.InboundEvent) (channel.Channel, inbox.Inbox, error) {
	ch, err := s.store.Channels().GetByExternalID(ctx, kind, businessSourceID(ev))
	if err != nil {
		return channel.Channel{}, inbox.Inbox{}, err
	}
	ib, err := s.store.Inboxes().GetByChannel(ctx, kind, ch.ID)
	if err != nil {
		return channel.Channel{}, inbox.Inbox{}, err
	}
	return ch, ib, nil
}

// applyReceipt advances outgoing message statuses up to the watermark for
// the sender's latest conversation. Unknown senders are ignored.
func (s *IngestService) applyReceipt(ctx context.Context, ib inbox.Inbox, ev webhook.InboundEvent) error {
	ci, err := s.store.Contacts().GetContactInboxBySourceID(ctx, ib.ID, ev.SenderID)
	if err != nil {
		if err == hub_errors.ErrNotFound {
			return nil
		}
		return err
	}
	conv, err := s.store.Conversations().GetLatestForContact(ctx, ib.AccountID, ib.ID, ci.ContactID)
	if err != nil {
		if err == hub_errors.ErrNotFound {
			return nil
		}
		return err
	}

	status := message.StatusDelivered
	mark := ev.DeliveryWatermark
	if ev.ReadWatermark != nil {
		status = message.StatusRead
		mark = ev.ReadWatermark
	}
	upTo := time.UnixMilli(*mark)

	updated, err := s.store.Messages().UpdateOutgoingStatusUpTo(ctx, conv.ID, status, upTo)
	if err != nil {
		return err
	}
	if updated > 0 {
		s.bus.Publish(ctx, events.New(events.TypeMessageUpdated, ib.AccountID, events.MessagePayload{
			ConversationID: conv.ID,
			InboxID:        ib.ID,
			Status:         status,
		}))
	}
	return nil
}

func (s *IngestService) publishCreated(ctx context.Context, conv conversation.Conversation, ci contact.ContactInbox, created bool, msg message.Message) {
	if created {
		s.bus.Publish(ctx, events.New(events.TypeConversationCreated, conv.AccountID, events.ConversationPayload{
			ConversationID: conv.ID,
			InboxID:        conv.InboxID,
			ContactID:      ci.ContactID,
			DisplayID:      conv.DisplayID,
		}))
	}
	s.bus.Publish(ctx, events.New(events.TypeMessageCreated, msg.AccountID, events.MessagePayload{
		MessageID:      msg.ID,
		ConversationID: msg.ConversationID,
		InboxID:        msg.InboxID,
		MessageType:    msg.Type,
		Status:         msg.Status,
	}))
}

// businessSourceID returns the event id that identifies the business side
// of the thread: the sender for echoes, the recipient otherwise.
func businessSourceID(ev webhook.InboundEvent) string {
	if ev.Echo {
		return ev.SenderID
	}
	return ev.RecipientID
}
