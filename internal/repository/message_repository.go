package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"supporthub/internal/domain/message"
	hub_errors "supporthub/pkg/errors"
)

type PostgresMessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &PostgresMessageRepository{db: db}
}

func (r *PostgresMessageRepository) Create(ctx context.Context, m *message.Message) error {
	res := r.db.WithContext(ctx).Create(m)
	if res.Error != nil {
		if isDuplicate(res.Error) {
			return hub_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresMessageRepository) GetByID(ctx context.Context, accountID, id uuid.UUID) (message.Message, error) {
	var m message.Message
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND id = ?", accountID, id).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return message.Message{}, hub_errors.ErrNotFound
		}
		return message.Message{}, err
	}
	return m, nil
}

func (r *PostgresMessageRepository) GetBySourceID(ctx context.Context, inboxID uuid.UUID, sourceID string) (message.Message, error) {
	var m message.Message
	err := r.db.WithContext(ctx).
		Where("inbox_id = ? AND source_id = ?", inboxID, sourceID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return message.Message{}, hub_errors.ErrNotFound
		}
		return message.Message{}, err
	}
	return m, nil
}

func (r *PostgresMessageRepository) ExistsBySourceID(ctx context.Context, inboxID uuid.UUID, sourceID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&message.Message{}).
		Where("inbox_id = ? AND source_id = ?", inboxID, sourceID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PostgresMessageRepository) Update(ctx context.Context, m message.Message) error {
	m.UpdatedAt = time.Now()
	res := r.db.WithContext(ctx).Save(&m)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return hub_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresMessageRepository) MarkSent(ctx context.Context, id uuid.UUID, sourceID string) error {
	res := r.db.WithContext(ctx).
		Model(&message.Message{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"source_id":  sourceID,
			"status":     message.StatusSent,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		if isDuplicate(res.Error) {
			return hub_errors.ErrAlreadyExists
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return hub_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresMessageRepository) MarkFailed(ctx context.Context, id uuid.UUID, externalError string) error {
	res := r.db.WithContext(ctx).
		Model(&message.Message{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":         message.StatusFailed,
			"external_error": externalError,
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return hub_errors.ErrNotFound
	}
	return nil
}

var priorStatuses = map[string][]string{
	message.StatusDelivered: {message.StatusSent},
	message.StatusRead:      {message.StatusSent, message.StatusDelivered},
}

func (r *PostgresMessageRepository) UpdateOutgoingStatusUpTo(ctx context.Context, conversationID uuid.UUID, status string, upTo time.Time) (int64, error) {
	prior, ok := priorStatuses[status]
	if !ok {
		return 0, hub_errors.ErrInvalidInput
	}
	res := r.db.WithContext(ctx).
		Model(&message.Message{}).
		Where("conversation_id = ? AND type = ? AND created_at <= ? AND status IN ?",
			conversationID, message.TypeOutgoing, upTo, prior).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *PostgresMessageRepository) CreateAttachment(ctx context.Context, a *message.Attachment) error {
	res := r.db.WithContext(ctx).Create(a)
	if res.Error != nil {
		return res.Error
	}
	return nil
}

func (r *PostgresMessageRepository) GetAttachments(ctx context.Context, messageID uuid.UUID) ([]message.Attachment, error) {
	var attachments []message.Attachment
	err := r.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Order("created_at ASC").
		Find(&attachments).Error
	if err != nil {
		return nil, err
	}
	return attachments, nil
}
