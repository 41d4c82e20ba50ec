// Package memory provides the fast in-process cache tier.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/hearsay-labs/hearsay-cli/internal/core/ports/driven"
)

// Ensure Tier implements the interface.
var _ driven.CacheTier = (*Tier)(nil)

// Tier is an in-memory implementation of driven.CacheTier.
// It is the first tier consulted on every lookup.
type Tier struct {
	mu      sync.RWMutex
	records map[string]driven.CacheRecord
}

// NewTier creates a new in-memory cache tier.
func NewTier() *Tier {
	return &Tier{
		records: make(map[string]driven.CacheRecord),
	}
}

// compositeKey joins namespace and key with a separator that cannot
// appear in either.
func compositeKey(namespace, key string) string {
	return namespace + "\x00" + key
}

// Get retrieves a record.
func (t *Tier) Get(_ context.Context, namespace, key string) (*driven.CacheRecord, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rec, ok := t.records[compositeKey(namespace, key)]
	if !ok {
		return nil, driven.ErrCacheMiss
	}
	return &rec, nil
}

// Put stores or replaces a record.
func (t *Tier) Put(_ context.Context, namespace, key string, record driven.CacheRecord) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records[compositeKey(namespace, key)] = record
	return nil
}

// Delete removes a record.
func (t *Tier) Delete(_ context.Context, namespace, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.records, compositeKey(namespace, key))
	return nil
}

// DeletePrefix removes every record in the namespace whose key starts
// with prefix.
func (t *Tier) DeletePrefix(_ context.Context, namespace, prefix string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	want := compositeKey(namespace, prefix)
	for k := range t.records {
		if strings.HasPrefix(k, want) {
			delete(t.records, k)
		}
	}
	return nil
}

// Close releases resources.
func (t *Tier) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = make(map[string]driven.CacheRecord)
	return nil
}

// Len returns the number of stored records. Used in tests.
func (t *Tier) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}
