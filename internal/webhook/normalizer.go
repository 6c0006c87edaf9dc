package webhook

import (
	"errors"
	"fmt"
	"sync"

	"supporthub/internal/domain/channel"
)

// ErrMalformedPayload is returned when a webhook body cannot be parsed at
// all. This is the one ingestion failure that surfaces as a client error.
var ErrMalformedPayload = errors.New("malformed webhook payload")

// Normalizer parses one platform's raw webhook body into canonical
// inbound events. Implementations are pure: no state is touched.
type Normalizer interface {
	Kind() channel.Kind
	Normalize(body []byte) ([]InboundEvent, error)
}

// Registry holds the registered normalizers, keyed by channel kind. It
// must be created via NewRegistry and passed explicitly to the ingestion
// pipeline.
type Registry struct {
	mu          sync.RWMutex
	normalizers map[channel.Kind]Normalizer
}

func NewRegistry() *Registry {
	return &Registry{normalizers: map[channel.Kind]Normalizer{}}
}

// Register adds a normalizer to the registry.
func (r *Registry) Register(n Normalizer) error {
	if n == nil {
		return fmt.Errorf("normalizer is nil")
	}
	kind := n.Kind()
	if kind == "" {
		return fmt.Errorf("channel kind is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.normalizers[kind]; exists {
		return fmt.Errorf("normalizer already registered: %s", kind)
	}
	r.normalizers[kind] = n
	return nil
}

// MustRegister calls Register and panics on error.
func (r *Registry) MustRegister(n Normalizer) {
	if err := r.Register(n); err != nil {
		panic(err)
	}
}

// Get returns the normalizer for the given channel kind.
func (r *Registry) Get(kind channel.Kind) (Normalizer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.normalizers[kind]
	return n, ok
}
