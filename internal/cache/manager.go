// Package cache implements the two-tier, TTL-bounded cache that every
// expensive step of the pipeline is memoised through.
//
// Lookups check the fast in-process tier first, then the durable tier;
// a durable hit is promoted into the fast tier. Writes go through to
// both tiers synchronously. Expiry is lazy: the read that discovers an
// expired record deletes it from both tiers. Keys for the same entry
// are serialised through striped per-key locks; unrelated keys proceed
// fully in parallel.
package cache

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/hearsay-labs/hearsay-cli/internal/core/ports/driven"
	"github.com/hearsay-labs/hearsay-cli/internal/logger"
)

// Cache namespaces, one per artifact kind.
const (
	// NamespaceEmbedding holds chunk embeddings keyed by text hash.
	NamespaceEmbedding = "embedding"

	// NamespaceQueryEmbedding holds query embeddings keyed by the
	// literal query text hash. Short TTL: verbatim re-asks are rare
	// beyond back-to-back repeats.
	NamespaceQueryEmbedding = "query-embedding"

	// NamespaceQuery holds serialised query results, keyed per document.
	NamespaceQuery = "query"

	// NamespaceTranscript holds transcription output, keyed by document.
	NamespaceTranscript = "transcript"
)

// lockStripes is the number of per-key lock shards. Power of two.
const lockStripes = 64

// Manager coordinates the fast and durable tiers.
type Manager struct {
	fast    driven.CacheTier
	durable driven.CacheTier
	locks   [lockStripes]sync.Mutex
	now     func() time.Time
}

// Option configures the manager.
type Option func(*Manager)

// WithClock overrides the time source. Used in tests to exercise expiry
// without sleeping.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a cache manager over the two tiers.
// The durable tier may be nil; the cache then lives only in memory.
func NewManager(fast, durable driven.CacheTier, opts ...Option) *Manager {
	m := &Manager{
		fast:    fast,
		durable: durable,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// stripe picks the lock shard for a namespaced key.
func (m *Manager) stripe(namespace, key string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(namespace))
	h.Write([]byte{0})
	h.Write([]byte(key))
	return &m.locks[h.Sum32()&(lockStripes-1)]
}

// Get looks the key up across both tiers.
// Returns (nil, false, nil) on a miss; an expired record is a miss and
// is evicted from both tiers.
func (m *Manager) Get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	lock := m.stripe(namespace, key)
	lock.Lock()
	defer lock.Unlock()

	rec, err := m.fast.Get(ctx, namespace, key)
	switch {
	case err == nil:
		if rec.Expired(m.now()) {
			m.evict(ctx, namespace, key)
			return nil, false, nil
		}
		return rec.Value, true, nil
	case !errors.Is(err, driven.ErrCacheMiss):
		return nil, false, fmt.Errorf("fast tier get: %w", err)
	}

	if m.durable == nil {
		return nil, false, nil
	}

	rec, err = m.durable.Get(ctx, namespace, key)
	switch {
	case errors.Is(err, driven.ErrCacheMiss):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("durable tier get: %w", err)
	}

	if rec.Expired(m.now()) {
		m.evict(ctx, namespace, key)
		return nil, false, nil
	}

	// Promote the durable hit so the next read stays in memory.
	if err := m.fast.Put(ctx, namespace, key, *rec); err != nil {
		logger.Warn("Cache promotion failed for %s/%s: %v", namespace, key, err)
	}

	return rec.Value, true, nil
}

// Put writes the value through to both tiers.
func (m *Manager) Put(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) error {
	lock := m.stripe(namespace, key)
	lock.Lock()
	defer lock.Unlock()

	rec := driven.CacheRecord{
		Value:     value,
		CreatedAt: m.now(),
		TTL:       ttl,
	}

	if err := m.fast.Put(ctx, namespace, key, rec); err != nil {
		return fmt.Errorf("fast tier put: %w", err)
	}
	if m.durable != nil {
		if err := m.durable.Put(ctx, namespace, key, rec); err != nil {
			return fmt.Errorf("durable tier put: %w", err)
		}
	}
	return nil
}

// Invalidate removes the key from both tiers.
func (m *Manager) Invalidate(ctx context.Context, namespace, key string) error {
	lock := m.stripe(namespace, key)
	lock.Lock()
	defer lock.Unlock()

	m.evict(ctx, namespace, key)
	return nil
}

// InvalidatePrefix removes every key in the namespace starting with
// prefix, from both tiers. Used to drop one document's artifacts in
// bulk when a source is reprocessed.
//
// Unlike Invalidate, the sweep is not serialised against the per-key
// stripes, so a Put racing it can leave its key in a single tier until
// the entry expires. Keys here are content-derived, so such a survivor
// is stale only in the sense of being rebuildable, never wrong.
func (m *Manager) InvalidatePrefix(ctx context.Context, namespace, prefix string) error {
	if err := m.fast.DeletePrefix(ctx, namespace, prefix); err != nil {
		return fmt.Errorf("fast tier delete prefix: %w", err)
	}
	if m.durable != nil {
		if err := m.durable.DeletePrefix(ctx, namespace, prefix); err != nil {
			return fmt.Errorf("durable tier delete prefix: %w", err)
		}
	}
	return nil
}

// Close closes both tiers.
func (m *Manager) Close() error {
	err := m.fast.Close()
	if m.durable != nil {
		if derr := m.durable.Close(); err == nil {
			err = derr
		}
	}
	return err
}

// evict deletes the key from both tiers, logging rather than failing:
// eviction is best-effort cleanup on the read path.
func (m *Manager) evict(ctx context.Context, namespace, key string) {
	if err := m.fast.Delete(ctx, namespace, key); err != nil {
		logger.Warn("Fast tier eviction failed for %s/%s: %v", namespace, key, err)
	}
	if m.durable == nil {
		return
	}
	if err := m.durable.Delete(ctx, namespace, key); err != nil {
		logger.Warn("Durable tier eviction failed for %s/%s: %v", namespace, key, err)
	}
}
