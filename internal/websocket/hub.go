package websocket

import (
	"sync"

	"github.com/google/uuid"
)

// Hub tracks connected clients grouped by account. Broadcasts fan out to
// every client of one account, never across accounts.
type Hub struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{accounts: make(map[uuid.UUID]map[*Client]struct{})}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.accounts[c.AccountID]
	if !ok {
		clients = make(map[*Client]struct{})
		h.accounts[c.AccountID] = clients
	}
	clients[c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.accounts[c.AccountID]
	if !ok {
		return
	}
	if _, ok := clients[c]; !ok {
		return
	}
	delete(clients, c)
	close(c.send)
	if len(clients) == 0 {
		delete(h.accounts, c.AccountID)
	}
}

// Broadcast delivers a payload to every client of the account.
func (h *Hub) Broadcast(accountID uuid.UUID, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.accounts[accountID] {
		c.deliver(payload)
	}
}

// ClientCount reports connected clients for the account.
func (h *Hub) ClientCount(accountID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.accounts[accountID])
}
