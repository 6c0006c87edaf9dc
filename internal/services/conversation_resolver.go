package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"supporthub/internal/domain/contact"
	"supporthub/internal/domain/conversation"
	"supporthub/internal/domain/inbox"
	"supporthub/internal/repository"
	hub_errors "supporthub/pkg/errors"
	"supporthub/pkg/logger"
)

const conversationCreateAttempts = 3

// ConversationResolver picks or creates the thread for an event. Both
// threading policies share one reuse-or-reopen path: the most recently
// created conversation for the contact is always reused, reopening it
// when resolved; a new conversation is only created when none exists.
type ConversationResolver struct {
	logger *logger.Logger
	now    func() time.Time
}

func NewConversationResolver(l *logger.Logger) *ConversationResolver {
	return &ConversationResolver{logger: l, now: time.Now}
}

// Resolve must be called with a transaction-bound store so the display_id
// allocation and the conversation insert commit atomically with the
// triggering message. The second return reports whether a conversation
// was created.
func (r *ConversationResolver) Resolve(ctx context.Context, store repository.Store, ib inbox.Inbox, ci contact.ContactInbox) (conversation.Conversation, bool, error) {
	convos := store.Conversations()

	conv, err := convos.GetLatestForContact(ctx, ib.AccountID, ib.ID, ci.ContactID)
	if err == nil {
		if conv.Status != conversation.StatusOpen {
			conv.Open(r.now())
			if err := convos.Update(ctx, conv); err != nil {
				return conversation.Conversation{}, false, err
			}
			r.logger.Infof("reopened conversation %d (account %s)", conv.DisplayID, ib.AccountID)
		}
		return conv, false, nil
	}
	if !errors.Is(err, hub_errors.ErrNotFound) {
		return conversation.Conversation{}, false, err
	}

	return r.create(ctx, store, ib, ci)
}

func (r *ConversationResolver) create(ctx context.Context, store repository.Store, ib inbox.Inbox, ci contact.ContactInbox) (conversation.Conversation, bool, error) {
	convos := store.Conversations()

	for attempt := 1; attempt <= conversationCreateAttempts; attempt++ {
		displayID, err := convos.NextDisplayID(ctx, ib.AccountID)
		if err != nil {
			return conversation.Conversation{}, false, err
		}

		now := r.now()
		conv := conversation.Conversation{
			ID:             uuid.New(),
			AccountID:      ib.AccountID,
			InboxID:        ib.ID,
			ContactID:      ci.ContactID,
			ContactInboxID: ci.ID,
			DisplayID:      displayID,
			Status:         conversation.StatusOpen,
			Priority:       conversation.PriorityNone,
			LastActivityAt: now,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		// The insert runs in a nested transaction (a savepoint on the
		// caller's tx): a unique violation aborts only the savepoint, so
		// the re-read and retry below still run on a live transaction.
		err = store.Transaction(ctx, func(tx repository.Store) error {
			return tx.Conversations().Create(ctx, &conv)
		})
		if err == nil {
			r.logger.Infof("created conversation %d for contact %s in inbox %s", displayID, ci.ContactID, ib.ID)
			return conv, true, nil
		}
		if !errors.Is(err, hub_errors.ErrAlreadyExists) {
			return conversation.Conversation{}, false, err
		}

		// Duplicate key means someone else just created either this
		// contact's conversation or this display_id. Re-read; if the
		// contact now has a thread, reuse it, otherwise retry with a
		// fresh display_id.
		existing, readErr := convos.GetLatestForContact(ctx, ib.AccountID, ib.ID, ci.ContactID)
		if readErr == nil {
			return existing, false, nil
		}
		if !errors.Is(readErr, hub_errors.ErrNotFound) {
			return conversation.Conversation{}, false, readErr
		}
	}

	return conversation.Conversation{}, false, hub_errors.ErrConflict
}
