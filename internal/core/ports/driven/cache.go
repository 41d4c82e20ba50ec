package driven

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by a tier when the key is absent.
// Expiry is not a tier concern: tiers return records verbatim and the
// cache manager reports expired records as misses.
var ErrCacheMiss = errors.New("cache miss")

// CacheRecord is one stored cache entry.
// A record is never served once now > CreatedAt + TTL.
type CacheRecord struct {
	// Value is the opaque serialised payload.
	Value []byte

	// CreatedAt is when the record was written.
	CreatedAt time.Time

	// TTL bounds the record's lifetime. Zero means no expiry.
	TTL time.Duration
}

// Expired reports whether the record is past its TTL at the given time.
func (r CacheRecord) Expired(now time.Time) bool {
	if r.TTL <= 0 {
		return false
	}
	return now.After(r.CreatedAt.Add(r.TTL))
}

// CacheTier is one storage tier of the two-tier cache.
//
// The fast tier is an in-process map; the durable tier is SQLite.
// Keys are namespaced by artifact kind (embedding, transcript,
// query-result) so different artifacts never collide. Tiers are dumb
// stores: expiry, promotion and per-key serialisation all live in the
// cache manager.
type CacheTier interface {
	// Get retrieves a record. Returns ErrCacheMiss when absent.
	Get(ctx context.Context, namespace, key string) (*CacheRecord, error)

	// Put stores or replaces a record.
	Put(ctx context.Context, namespace, key string, record CacheRecord) error

	// Delete removes a record. Deleting an absent key is not an error.
	Delete(ctx context.Context, namespace, key string) error

	// DeletePrefix removes every record in the namespace whose key
	// starts with prefix.
	DeletePrefix(ctx context.Context, namespace, prefix string) error

	// Close releases resources.
	Close() error
}
