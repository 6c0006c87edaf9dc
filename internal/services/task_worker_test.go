package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supporthub/internal/domain/message"
	"supporthub/internal/domain/task"
	"supporthub/internal/platform"
	"supporthub/pkg/logger"
)

func (d *deliveryFixture) worker() *TaskWorker {
	return NewTaskWorker(d.store, d.delivery, logger.NewNop())
}

func (d *deliveryFixture) enqueueSend(t *testing.T, m message.Message) task.Task {
	t.Helper()
	payload := []byte(`{"message_id":"` + m.ID.String() + `","account_id":"` + d.ib.AccountID.String() + `"}`)
	queued := task.Task{
		ID:          uuid.New(),
		Kind:        task.KindMessageSend,
		Payload:     payload,
		Status:      task.StatusPending,
		ScheduledAt: time.Now().Add(-time.Second),
	}
	require.NoError(t, d.store.Tasks().Enqueue(context.Background(), &queued))
	return queued
}

func TestTaskWorker_CompletesSendTask(t *testing.T) {
	d := newDeliveryFixture(t)
	m := d.outgoing(t, "hello", nil)
	queued := d.enqueueSend(t, m)

	d.worker().processBatch()

	got := d.store.tasks[queued.ID]
	assert.Equal(t, task.StatusCompleted, got.Status)

	sent, err := d.store.Messages().GetByID(context.Background(), d.ib.AccountID, m.ID)
	require.NoError(t, err)
	assert.Equal(t, message.StatusSent, sent.Status)
}

func TestTaskWorker_RequeuesFailedTask(t *testing.T) {
	d := newDeliveryFixture(t)
	m := d.outgoing(t, "hello", nil)
	queued := d.enqueueSend(t, m)
	d.sender.textFn = func(recipientID, text string) (platform.SendResult, error) {
		return platform.SendResult{}, &platform.APIError{Code: 1, Message: "downstream hiccup"}
	}

	d.worker().processBatch()

	got := d.store.tasks[queued.ID]
	assert.Equal(t, task.StatusPending, got.Status)
	assert.Equal(t, 1, got.RetryCount)
}

func TestTaskWorker_ExhaustedRetriesFail(t *testing.T) {
	d := newDeliveryFixture(t)
	m := d.outgoing(t, "hello", nil)
	queued := d.enqueueSend(t, m)
	queued.RetryCount = 9
	d.store.tasks[queued.ID] = queued
	d.sender.textFn = func(recipientID, text string) (platform.SendResult, error) {
		return platform.SendResult{}, &platform.APIError{Code: 1, Message: "still broken"}
	}

	d.worker().processBatch()

	got := d.store.tasks[queued.ID]
	assert.Equal(t, task.StatusFailed, got.Status)
	assert.Contains(t, got.LastError.String, "still broken")
}

func TestTaskWorker_AlreadySentTaskCompletes(t *testing.T) {
	d := newDeliveryFixture(t)
	m := d.outgoing(t, "hello", nil)
	require.NoError(t, d.store.Messages().MarkSent(context.Background(), m.ID, "mid.prior"))
	queued := d.enqueueSend(t, m)

	d.worker().processBatch()

	got := d.store.tasks[queued.ID]
	assert.Equal(t, task.StatusCompleted, got.Status)
	assert.Empty(t, d.sender.calls)
}

func TestTaskWorker_ClaimedTaskIsSkipped(t *testing.T) {
	d := newDeliveryFixture(t)
	m := d.outgoing(t, "hello", nil)
	queued := d.enqueueSend(t, m)
	require.NoError(t, d.store.Tasks().MarkProcessing(context.Background(), queued.ID))

	d.worker().processTask(context.Background(), queued)

	got := d.store.tasks[queued.ID]
	assert.Equal(t, task.StatusProcessing, got.Status)
	assert.Empty(t, d.sender.calls)
}

func TestTaskWorker_UnknownKindFails(t *testing.T) {
	d := newDeliveryFixture(t)
	queued := task.Task{
		ID:          uuid.New(),
		Kind:        "task.unknown",
		Status:      task.StatusPending,
		ScheduledAt: time.Now().Add(-time.Second),
		RetryCount:  9,
	}
	require.NoError(t, d.store.Tasks().Enqueue(context.Background(), &queued))

	d.worker().processBatch()

	assert.Equal(t, task.StatusFailed, d.store.tasks[queued.ID].Status)
}
