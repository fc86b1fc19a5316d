package blob

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/dgraph-io/ristretto/v2"
)

// CachedStore is a read-through cache in front of another Store. Entries
// are keyed by blob path and weighted by size. Put and Delete invalidate
// on both sides of the backing write, and a read that overlapped a write
// is not cached.
type CachedStore struct {
	next   Store
	cache  *ristretto.Cache[string, []byte]
	writes atomic.Uint64
}

func NewCachedStore(next Store, maxCostBytes int64) (*CachedStore, error) {
	if maxCostBytes <= 0 {
		return nil, fmt.Errorf("cache size must be positive, got %d", maxCostBytes)
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: max(maxCostBytes/100*10, 1000),
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("creating blob cache: %w", err)
	}
	return &CachedStore{next: next, cache: c}, nil
}

func (s *CachedStore) Put(ctx context.Context, key string, data []byte) error {
	defer s.invalidate(key)()
	return s.next.Put(ctx, key, data)
}

func (s *CachedStore) Get(ctx context.Context, key string) ([]byte, error) {
	if data, ok := s.cache.Get(key); ok {
		return data, nil
	}
	seen := s.writes.Load()
	data, err := s.next.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if s.writes.Load() == seen {
		s.cache.Set(key, data, int64(len(data)))
	}
	return data, nil
}

func (s *CachedStore) Exists(ctx context.Context, key string) (bool, error) {
	if _, ok := s.cache.Get(key); ok {
		return true, nil
	}
	return s.next.Exists(ctx, key)
}

func (s *CachedStore) Delete(ctx context.Context, key string) error {
	defer s.invalidate(key)()
	return s.next.Delete(ctx, key)
}

// invalidate drops key and marks a write in progress. The returned func
// drops key again once the backing write is done, catching a read that
// cached the old value in between.
func (s *CachedStore) invalidate(key string) func() {
	s.writes.Add(1)
	s.cache.Del(key)
	return func() {
		s.writes.Add(1)
		s.cache.Del(key)
	}
}

func (s *CachedStore) Close() {
	s.cache.Close()
}
