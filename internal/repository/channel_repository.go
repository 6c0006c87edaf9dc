package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"supporthub/internal/domain/channel"
	hub_errors "supporthub/pkg/errors"
)

type PostgresChannelRepository struct {
	db *gorm.DB
}

func NewChannelRepository(db *gorm.DB) ChannelRepository {
	return &PostgresChannelRepository{db: db}
}

func (r *PostgresChannelRepository) Create(ctx context.Context, c *channel.Channel) error {
	res := r.db.WithContext(ctx).Create(c)
	if res.Error != nil {
		if isDuplicate(res.Error) {
			return hub_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresChannelRepository) GetByID(ctx context.Context, id uuid.UUID) (channel.Channel, error) {
	var c channel.Channel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return channel.Channel{}, hub_errors.ErrNotFound
		}
		return channel.Channel{}, err
	}
	return c, nil
}

func (r *PostgresChannelRepository) GetByExternalID(ctx context.Context, kind channel.Kind, externalID string) (channel.Channel, error) {
	var c channel.Channel
	err := r.db.WithContext(ctx).
		Where("kind = ? AND external_id = ?", kind, externalID).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return channel.Channel{}, hub_errors.ErrNotFound
		}
		return channel.Channel{}, err
	}
	return c, nil
}

func (r *PostgresChannelRepository) Update(ctx context.Context, c channel.Channel) error {
	res := r.db.WithContext(ctx).Save(&c)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return hub_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresChannelRepository) UpdateToken(ctx context.Context, id uuid.UUID, token string, expiresAt, refreshedAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&channel.Channel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"access_token":             token,
			"token_expires_at":         expiresAt,
			"token_refreshed_at":       refreshedAt,
			"reauthorization_required": false,
			"updated_at":               time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return hub_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresChannelRepository) SetReauthorizationRequired(ctx context.Context, id uuid.UUID, required bool) error {
	res := r.db.WithContext(ctx).
		Model(&channel.Channel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"reauthorization_required": required,
			"updated_at":               time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return hub_errors.ErrNotFound
	}
	return nil
}
