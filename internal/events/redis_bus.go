package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisBus implements Bus over Redis Pub/Sub. Events fan out on
// account-scoped channels so one tenant's listeners never see another's.
type RedisBus struct {
	client   *redis.Client
	handlers map[Type][]Handler
	pubsub   *redis.PubSub
	mu       sync.RWMutex
	ctx      context.Context
	cancel   context.CancelFunc
	running  bool
}

func NewRedisBus(client *redis.Client) *RedisBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisBus{
		client:   client,
		handlers: make(map[Type][]Handler),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func channelFor(accountID string) string {
	return fmt.Sprintf("account:%s", accountID)
}

func (b *RedisBus) Start() error {
	b.running = true
	b.pubsub = b.client.PSubscribe(b.ctx, "account:*")
	go b.listen()
	return nil
}

func (b *RedisBus) Stop() error {
	b.cancel()
	b.running = false
	if b.pubsub != nil {
		b.pubsub.Close()
	}
	return nil
}

func (b *RedisBus) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return b.client.Publish(ctx, channelFor(event.AccountID.String()), data).Err()
}

// Subscribe registers a handler for an event type. Must be called before
// Start.
func (b *RedisBus) Subscribe(eventType Type, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

func (b *RedisBus) listen() {
	ch := b.pubsub.Channel()
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg := <-ch:
			if msg == nil {
				continue
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}
			b.dispatch(event)
		}
	}
}

func (b *RedisBus) dispatch(event Event) {
	b.mu.RLock()
	handlers := b.handlers[event.Type]
	b.mu.RUnlock()

	for _, handler := range handlers {
		go func(h Handler) {
			h(b.ctx, event)
		}(handler)
	}
}
