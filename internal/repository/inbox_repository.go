package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"supporthub/internal/domain/channel"
	"supporthub/internal/domain/inbox"
	hub_errors "supporthub/pkg/errors"
)

type PostgresInboxRepository struct {
	db *gorm.DB
}

func NewInboxRepository(db *gorm.DB) InboxRepository {
	return &PostgresInboxRepository{db: db}
}

func (r *PostgresInboxRepository) Create(ctx context.Context, i *inbox.Inbox) error {
	res := r.db.WithContext(ctx).Create(i)
	if res.Error != nil {
		if isDuplicate(res.Error) {
			return hub_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresInboxRepository) GetByID(ctx context.Context, accountID, id uuid.UUID) (inbox.Inbox, error) {
	var i inbox.Inbox
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND id = ?", accountID, id).
		First(&i).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return inbox.Inbox{}, hub_errors.ErrNotFound
		}
		return inbox.Inbox{}, err
	}
	return i, nil
}

func (r *PostgresInboxRepository) GetByChannel(ctx context.Context, kind channel.Kind, channelID uuid.UUID) (inbox.Inbox, error) {
	var i inbox.Inbox
	err := r.db.WithContext(ctx).
		Where("channel_kind = ? AND channel_id = ?", kind, channelID).
		First(&i).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return inbox.Inbox{}, hub_errors.ErrNotFound
		}
		return inbox.Inbox{}, err
	}
	return i, nil
}
