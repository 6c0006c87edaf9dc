package websocket

import (
	"context"
	"encoding/json"

	"supporthub/internal/events"
	"supporthub/pkg/logger"
)

// Bridge returns an event handler that pushes bus events to the
// account's connected agents.
func Bridge(hub *Hub, l *logger.Logger) events.Handler {
	return func(ctx context.Context, event events.Event) {
		payload, err := json.Marshal(event)
		if err != nil {
			l.Errorf("failed to marshal event %s: %v", event.Type, err)
			return
		}
		hub.Broadcast(event.AccountID, payload)
	}
}
