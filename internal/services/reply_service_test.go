package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supporthub/internal/domain/message"
	"supporthub/internal/domain/task"
	"supporthub/internal/events"
	hub_errors "supporthub/pkg/errors"
	"supporthub/pkg/logger"
)

func (f *fixture) replies() *ReplyService {
	return NewReplyService(f.store, NewMessageBuilder(newStubBlobStore(), logger.NewNop()), f.bus, logger.NewNop())
}

func TestReply_EnqueuesDeliveryTask(t *testing.T) {
	f := newFixture(t)
	ci := f.contactInbox(t, "u1")
	conv := f.conversation(t, ci)
	agentID := uuid.New()

	m, err := f.replies().Reply(context.Background(), ReplyInput{
		AccountID: f.ib.AccountID,
		DisplayID: conv.DisplayID,
		AgentID:   agentID,
		Content:   "thanks for reaching out",
	})
	require.NoError(t, err)
	assert.Equal(t, message.StatusInProgress, m.Status)
	assert.Equal(t, agentID, m.SenderID.UUID)

	require.Len(t, f.store.tasks, 1)
	for _, queued := range f.store.tasks {
		assert.Equal(t, task.KindMessageSend, queued.Kind)
		assert.Equal(t, task.StatusPending, queued.Status)
		var p task.SendMessagePayload
		require.NoError(t, json.Unmarshal(queued.Payload, &p))
		assert.Equal(t, m.ID, p.MessageID)
		assert.Equal(t, f.ib.AccountID, p.AccountID)
	}

	created := f.bus.byType(events.TypeMessageCreated)
	require.Len(t, created, 1)
}

func TestReply_PrivateNoteSkipsTask(t *testing.T) {
	f := newFixture(t)
	ci := f.contactInbox(t, "u1")
	conv := f.conversation(t, ci)

	m, err := f.replies().Reply(context.Background(), ReplyInput{
		AccountID: f.ib.AccountID,
		DisplayID: conv.DisplayID,
		AgentID:   uuid.New(),
		Content:   "internal context",
		Private:   true,
	})
	require.NoError(t, err)
	assert.True(t, m.Private)
	assert.Empty(t, f.store.tasks)
}

func TestReply_UnknownConversation(t *testing.T) {
	f := newFixture(t)

	_, err := f.replies().Reply(context.Background(), ReplyInput{
		AccountID: f.ib.AccountID,
		DisplayID: 404,
		AgentID:   uuid.New(),
		Content:   "hello",
	})
	assert.ErrorIs(t, err, hub_errors.ErrNotFound)
	assert.Empty(t, f.store.messages)
}

func TestReply_EmptyBody(t *testing.T) {
	f := newFixture(t)
	ci := f.contactInbox(t, "u1")
	conv := f.conversation(t, ci)

	_, err := f.replies().Reply(context.Background(), ReplyInput{
		AccountID: f.ib.AccountID,
		DisplayID: conv.DisplayID,
		AgentID:   uuid.New(),
	})
	assert.ErrorIs(t, err, hub_errors.ErrInvalidInput)
	assert.Empty(t, f.store.tasks)
}
