package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"supporthub/internal/domain/task"
	hub_errors "supporthub/pkg/errors"
)

type PostgresTaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &PostgresTaskRepository{db: db}
}

func (r *PostgresTaskRepository) Enqueue(ctx context.Context, t *task.Task) error {
	res := r.db.WithContext(ctx).Create(t)
	if res.Error != nil {
		return res.Error
	}
	return nil
}

func (r *PostgresTaskRepository) GetPending(ctx context.Context, limit int) ([]task.Task, error) {
	var tasks []task.Task
	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_at <= ?", task.StatusPending, time.Now()).
		Order("scheduled_at ASC").
		Limit(limit).
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// MarkProcessing claims a pending task. The status guard in the WHERE
// clause makes the claim atomic: a second worker gets zero rows.
func (r *PostgresTaskRepository) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&task.Task{}).
		Where("id = ? AND status = ?", id, task.StatusPending).
		Updates(map[string]interface{}{
			"status":     task.StatusProcessing,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return hub_errors.ErrConflict
	}
	return nil
}

func (r *PostgresTaskRepository) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&task.Task{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       task.StatusCompleted,
			"processed_at": now,
			"updated_at":   now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return hub_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresTaskRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&task.Task{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       task.StatusFailed,
			"last_error":   reason,
			"processed_at": now,
			"updated_at":   now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return hub_errors.ErrNotFound
	}
	return nil
}

// IncrementRetry re-queues a task after a transient failure, pushing its
// scheduled_at forward so the next poll does not retry immediately.
func (r *PostgresTaskRepository) IncrementRetry(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&task.Task{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"retry_count":  gorm.Expr("retry_count + 1"),
			"status":       task.StatusPending,
			"scheduled_at": now.Add(30 * time.Second),
			"updated_at":   now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return hub_errors.ErrNotFound
	}
	return nil
}
