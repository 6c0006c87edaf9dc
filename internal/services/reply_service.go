package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"supporthub/internal/domain/message"
	"supporthub/internal/domain/task"
	"supporthub/internal/events"
	"supporthub/internal/repository"
	"supporthub/pkg/logger"
)

// ReplyService handles agent-composed outgoing messages: the message row
// and its delivery task are written in one transaction, and the actual
// platform send happens later on the worker.
type ReplyService struct {
	store   repository.Store
	builder *MessageBuilder
	bus     events.Bus
	logger  *logger.Logger
	now     func() time.Time
}

func NewReplyService(store repository.Store, builder *MessageBuilder, bus events.Bus, l *logger.Logger) *ReplyService {
	return &ReplyService{
		store:   store,
		builder: builder,
		bus:     bus,
		logger:  l,
		now:     time.Now,
	}
}

// ReplyInput is an agent reply to a conversation, addressed by the
// conversation's account-scoped display id.
type ReplyInput struct {
	AccountID   uuid.UUID
	DisplayID   int64
	AgentID     uuid.UUID
	Content     string
	Private     bool
	Attachments []AgentAttachment
}

// Reply creates the outgoing message and, unless it is a private note,
// enqueues its delivery task.
func (s *ReplyService) Reply(ctx context.Context, in ReplyInput) (message.Message, error) {
	conv, err := s.store.Conversations().GetByDisplayID(ctx, in.AccountID, in.DisplayID)
	if err != nil {
		return message.Message{}, err
	}

	var m message.Message
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		var txErr error
		m, txErr = s.builder.BuildOutgoing(ctx, tx, conv, in.AgentID, in.Content, in.Private, in.Attachments)
		if txErr != nil {
			return txErr
		}
		if in.Private {
			return nil
		}
		payload, txErr := json.Marshal(task.SendMessagePayload{
			MessageID: m.ID,
			AccountID: in.AccountID,
		})
		if txErr != nil {
			return txErr
		}
		t := task.Task{
			ID:          uuid.New(),
			Kind:        task.KindMessageSend,
			Payload:     payload,
			Status:      task.StatusPending,
			ScheduledAt: s.now(),
			CreatedAt:   s.now(),
			UpdatedAt:   s.now(),
		}
		return tx.Tasks().Enqueue(ctx, &t)
	})
	if err != nil {
		return message.Message{}, err
	}

	s.bus.Publish(ctx, events.New(events.TypeMessageCreated, m.AccountID, events.MessagePayload{
		MessageID:      m.ID,
		ConversationID: m.ConversationID,
		InboxID:        m.InboxID,
		MessageType:    m.Type,
		Status:         m.Status,
	}))
	return m, nil
}
