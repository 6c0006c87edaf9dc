package account

import (
	"time"

	"github.com/google/uuid"
)

// Account represents the accounts table. One account per tenant.
type Account struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Agent represents the agents table.
type Agent struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Name      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Account) TableName() string {
	return "accounts"
}

func (Agent) TableName() string {
	return "agents"
}
