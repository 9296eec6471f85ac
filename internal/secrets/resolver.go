package secrets

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Resolver wraps a Store with a TTL cache so hot references don't hit the
// backing store on every adapter construction.
type Resolver struct {
	store Store
	cache *ristretto.Cache[string, string]
	ttl   time.Duration
}

// NewResolver creates a resolver with the given TTL.
func NewResolver(store Store, ttl time.Duration) (*Resolver, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, string]{
		NumCounters: 1e4,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Resolver{store: store, cache: cache, ttl: ttl}, nil
}

// Get returns the secret for a reference, consulting the cache first.
func (r *Resolver) Get(ctx context.Context, reference string) (string, error) {
	if v, ok := r.cache.Get(reference); ok {
		return v, nil
	}

	value, err := r.store.Get(ctx, reference)
	if err != nil {
		return "", err
	}

	r.cache.SetWithTTL(reference, value, int64(len(value)), r.ttl)
	return value, nil
}

// Invalidate removes a cached secret (call after rotation).
func (r *Resolver) Invalidate(reference string) {
	r.cache.Del(reference)
}

// Close releases the cache's background resources.
func (r *Resolver) Close() {
	r.cache.Close()
}
