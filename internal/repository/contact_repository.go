package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"supporthub/internal/domain/contact"
	hub_errors "supporthub/pkg/errors"
)

type PostgresContactRepository struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) ContactRepository {
	return &PostgresContactRepository{db: db}
}

func (r *PostgresContactRepository) Create(ctx context.Context, c *contact.Contact) error {
	res := r.db.WithContext(ctx).Create(c)
	if res.Error != nil {
		if isDuplicate(res.Error) {
			return hub_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresContactRepository) GetByID(ctx context.Context, accountID, id uuid.UUID) (contact.Contact, error) {
	var c contact.Contact
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND id = ?", accountID, id).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return contact.Contact{}, hub_errors.ErrNotFound
		}
		return contact.Contact{}, err
	}
	return c, nil
}

func (r *PostgresContactRepository) Update(ctx context.Context, c contact.Contact) error {
	c.UpdatedAt = time.Now()
	res := r.db.WithContext(ctx).Save(&c)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return hub_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresContactRepository) CreateContactInbox(ctx context.Context, ci *contact.ContactInbox) error {
	res := r.db.WithContext(ctx).Create(ci)
	if res.Error != nil {
		if isDuplicate(res.Error) {
			return hub_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresContactRepository) GetContactInboxByID(ctx context.Context, id uuid.UUID) (contact.ContactInbox, error) {
	var ci contact.ContactInbox
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&ci).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return contact.ContactInbox{}, hub_errors.ErrNotFound
		}
		return contact.ContactInbox{}, err
	}
	return ci, nil
}

func (r *PostgresContactRepository) GetContactInboxBySourceID(ctx context.Context, inboxID uuid.UUID, sourceID string) (contact.ContactInbox, error) {
	var ci contact.ContactInbox
	err := r.db.WithContext(ctx).
		Where("inbox_id = ? AND source_id = ?", inboxID, sourceID).
		First(&ci).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return contact.ContactInbox{}, hub_errors.ErrNotFound
		}
		return contact.ContactInbox{}, err
	}
	return ci, nil
}
