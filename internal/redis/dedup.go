package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// Dedup key pattern:
// - inflight:{inbox_id}:{source_id} - safety-TTL'd marker while an inbound
//   event is being processed

// DedupConfig contains configuration for the in-flight marker store.
type DedupConfig struct {
	// Safety TTL so a crashed worker never blocks a source_id forever.
	InFlightTTL time.Duration
}

// DefaultDedupConfig returns sensible defaults
func DefaultDedupConfig() DedupConfig {
	return DedupConfig{
		InFlightTTL: 5 * time.Minute,
	}
}

// DedupStore holds short-lived in-flight markers in Redis. SET NX makes
// the claim atomic across workers; two concurrent deliveries of the same
// source_id cannot both acquire it.
type DedupStore struct {
	client *goredis.Client
	config DedupConfig
}

// NewDedupStore creates a new dedup store
func NewDedupStore(client *goredis.Client, config DedupConfig) *DedupStore {
	if config.InFlightTTL <= 0 {
		config.InFlightTTL = DefaultDedupConfig().InFlightTTL
	}
	return &DedupStore{client: client, config: config}
}

func (d *DedupStore) key(inboxID uuid.UUID, sourceID string) string {
	return fmt.Sprintf("inflight:%s:%s", inboxID.String(), sourceID)
}

// MarkInFlight atomically claims the source_id for this inbox. Returns
// false when another worker already holds the marker.
func (d *DedupStore) MarkInFlight(ctx context.Context, inboxID uuid.UUID, sourceID string) (bool, error) {
	return d.client.SetNX(ctx, d.key(inboxID, sourceID), 1, d.config.InFlightTTL).Result()
}

// ClearInFlight releases the marker. Always called via defer so an error
// mid-pipeline cannot leave the id blocked past the safety TTL.
func (d *DedupStore) ClearInFlight(ctx context.Context, inboxID uuid.UUID, sourceID string) error {
	return d.client.Del(ctx, d.key(inboxID, sourceID)).Err()
}
