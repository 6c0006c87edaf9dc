package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"supporthub/internal/domain/task"
	"supporthub/internal/repository"
	hub_errors "supporthub/pkg/errors"
	"supporthub/pkg/logger"
)

// TaskWorker polls the tasks table and dispatches pending jobs. Retries
// happen here, on later polls, never inside request handlers.
type TaskWorker struct {
	store    repository.Store
	delivery *DeliveryService
	logger   *logger.Logger

	interval   time.Duration
	batchSize  int
	maxRetries int

	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewTaskWorker(store repository.Store, delivery *DeliveryService, l *logger.Logger) *TaskWorker {
	return &TaskWorker{
		store:      store,
		delivery:   delivery,
		logger:     l,
		interval:   time.Second,
		batchSize:  50,
		maxRetries: 9,
		stopChan:   make(chan struct{}),
	}
}

// Start begins the worker loop
func (w *TaskWorker) Start() {
	w.wg.Add(1)
	go w.run()
}

// Stop gracefully shuts down
func (w *TaskWorker) Stop() {
	close(w.stopChan)
	w.wg.Wait()
}

func (w *TaskWorker) run() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.processBatch()
		}
	}
}

func (w *TaskWorker) processBatch() {
	ctx := context.Background()
	pending, err := w.store.Tasks().GetPending(ctx, w.batchSize)
	if err != nil {
		w.logger.Errorf("failed to fetch pending tasks: %v", err)
		return
	}

	for _, t := range pending {
		w.processTask(ctx, t)
	}
}

func (w *TaskWorker) processTask(ctx context.Context, t task.Task) {
	// The claim is atomic; a conflict means another worker got here first.
	if err := w.store.Tasks().MarkProcessing(ctx, t.ID); err != nil {
		if err != hub_errors.ErrConflict {
			w.logger.Errorf("failed to claim task %s: %v", t.ID, err)
		}
		return
	}

	err := w.dispatch(ctx, t)
	if err == nil {
		if err := w.store.Tasks().MarkCompleted(ctx, t.ID); err != nil {
			w.logger.Errorf("failed to complete task %s: %v", t.ID, err)
		}
		return
	}

	if t.RetryCount >= w.maxRetries {
		w.logger.Errorf("task %s exhausted retries: %v", t.ID, err)
		if err := w.store.Tasks().MarkFailed(ctx, t.ID, truncate(err.Error(), maxExternalErrorLen)); err != nil {
			w.logger.Errorf("failed to mark task %s failed: %v", t.ID, err)
		}
		return
	}
	w.logger.Warnf("task %s failed (attempt %d): %v", t.ID, t.RetryCount+1, err)
	if err := w.store.Tasks().IncrementRetry(ctx, t.ID); err != nil {
		w.logger.Errorf("failed to increment retry for task %s: %v", t.ID, err)
	}
}

func (w *TaskWorker) dispatch(ctx context.Context, t task.Task) error {
	switch t.Kind {
	case task.KindMessageSend:
		var p task.SendMessagePayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			return err
		}
		err := w.delivery.Deliver(ctx, p.AccountID, p.MessageID)
		// A retried task finding the message already sent is a no-op.
		if err == hub_errors.ErrAlreadySent {
			return nil
		}
		return err
	default:
		return hub_errors.ErrInvalidInput
	}
}
