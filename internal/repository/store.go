package repository

import (
	"context"

	"gorm.io/gorm"
)

// GormStore is the Postgres-backed Store.
type GormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Channels() ChannelRepository {
	return &PostgresChannelRepository{db: s.db}
}

func (s *GormStore) Inboxes() InboxRepository {
	return &PostgresInboxRepository{db: s.db}
}

func (s *GormStore) Contacts() ContactRepository {
	return &PostgresContactRepository{db: s.db}
}

func (s *GormStore) Conversations() ConversationRepository {
	return &PostgresConversationRepository{db: s.db}
}

func (s *GormStore) Messages() MessageRepository {
	return &PostgresMessageRepository{db: s.db}
}

func (s *GormStore) Tasks() TaskRepository {
	return &PostgresTaskRepository{db: s.db}
}

// Transaction executes fn against a store bound to one database
// transaction. Nested calls reuse gorm's savepoint handling.
func (s *GormStore) Transaction(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}
