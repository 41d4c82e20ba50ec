package index

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hearsay-labs/hearsay-cli/internal/cache"
	"github.com/hearsay-labs/hearsay-cli/internal/core/domain"
	"github.com/hearsay-labs/hearsay-cli/internal/core/ports/driven"
	"github.com/hearsay-labs/hearsay-cli/internal/logger"
)

// Default TTLs for cached embeddings.
const (
	// DefaultEmbeddingTTL bounds chunk embeddings. A day, matching how
	// long a processed source stays warm.
	DefaultEmbeddingTTL = 24 * time.Hour

	// DefaultQueryEmbeddingTTL bounds query embeddings. Short: verbatim
	// re-asks mostly happen back to back.
	DefaultQueryEmbeddingTTL = time.Hour
)

// Handle identifies one built index.
type Handle string

// entry pairs a chunk with its embedding and lexical posting.
type entry struct {
	chunk     domain.Chunk
	embedding []float32
	posting   posting
}

// builtIndex is the immutable result of one successful build.
type builtIndex struct {
	documentID string
	entries    []entry
	idf        map[string]float64
}

// Manager builds hybrid indexes and answers queries against them.
// It is safe for concurrent use; distinct documents build in parallel.
type Manager struct {
	mu       sync.RWMutex
	indexes  map[Handle]*builtIndex
	embedder driven.EmbeddingService
	cache    *cache.Manager

	embeddingTTL      time.Duration
	queryEmbeddingTTL time.Duration
}

// ManagerOption configures the index manager.
type ManagerOption func(*Manager)

// WithEmbeddingTTL sets the chunk-embedding cache TTL.
func WithEmbeddingTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		if ttl > 0 {
			m.embeddingTTL = ttl
		}
	}
}

// WithQueryEmbeddingTTL sets the query-embedding cache TTL.
func WithQueryEmbeddingTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		if ttl > 0 {
			m.queryEmbeddingTTL = ttl
		}
	}
}

// NewManager creates an index manager.
func NewManager(embedder driven.EmbeddingService, cacheManager *cache.Manager, opts ...ManagerOption) *Manager {
	m := &Manager{
		indexes:           make(map[Handle]*builtIndex),
		embedder:          embedder,
		cache:             cacheManager,
		embeddingTTL:      DefaultEmbeddingTTL,
		queryEmbeddingTTL: DefaultQueryEmbeddingTTL,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Build indexes the chunk sequence of one document and returns a handle
// for querying it.
//
// Each chunk's embedding is looked up in the cache by text hash first;
// identical chunk text never computes an embedding twice, even across
// documents. The build is atomic: the index becomes reachable only
// after every chunk has an entry.
func (m *Manager) Build(ctx context.Context, documentID string, chunks []domain.Chunk) (Handle, error) {
	if len(chunks) == 0 {
		return "", fmt.Errorf("%w: empty chunk sequence for document %s", domain.ErrIndexBuild, documentID)
	}

	logger.Section("Index Build")
	logger.Debug("Document %s: %d chunks", documentID, len(chunks))

	entries := make([]entry, 0, len(chunks))
	misses := 0
	for _, chunk := range chunks {
		// Cancellation is checked between per-chunk embedding steps,
		// never mid-arithmetic.
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("%w: %w", domain.ErrCancelled, err)
		}

		embedding, hit, err := m.chunkEmbedding(ctx, chunk.Text)
		if err != nil {
			return "", err
		}
		if !hit {
			misses++
		}

		entries = append(entries, entry{
			chunk:     chunk,
			embedding: embedding,
			posting:   newPosting(chunk.Text),
		})
	}

	logger.Info("Embeddings: %d cached, %d computed", len(chunks)-misses, misses)

	postings := make([]posting, len(entries))
	for i := range entries {
		postings[i] = entries[i].posting
	}

	idx := &builtIndex{
		documentID: documentID,
		entries:    entries,
		idf:        computeIDF(postings),
	}

	handle := Handle(uuid.New().String())
	m.mu.Lock()
	m.indexes[handle] = idx
	m.mu.Unlock()

	logger.Debug("Index ready: handle=%s", handle)
	return handle, nil
}

// chunkEmbedding resolves one chunk embedding through the cache.
func (m *Manager) chunkEmbedding(ctx context.Context, text string) ([]float32, bool, error) {
	key := cache.TextKey(text)

	if raw, ok, err := m.cache.Get(ctx, cache.NamespaceEmbedding, key); err != nil {
		return nil, false, fmt.Errorf("embedding cache get: %w", err)
	} else if ok {
		return bytesToFloat32Slice(raw), true, nil
	}

	embedding, err := m.embedder.Embed(ctx, text)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}

	if err := m.cache.Put(ctx, cache.NamespaceEmbedding, key, float32SliceToBytes(embedding), m.embeddingTTL); err != nil {
		return nil, false, fmt.Errorf("embedding cache put: %w", err)
	}
	return embedding, false, nil
}

// Query ranks the indexed chunks against the query text and returns the
// top hits by fused score.
func (m *Manager) Query(ctx context.Context, handle Handle, queryText string, opts domain.QueryOptions) (*domain.QueryResult, error) {
	queryText = strings.TrimSpace(queryText)
	if queryText == "" {
		return nil, fmt.Errorf("%w: empty query text", domain.ErrInvalidQuery)
	}

	m.mu.RLock()
	idx, ok := m.indexes[handle]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: handle %s", domain.ErrIndexNotFound, handle)
	}

	logger.Section("Hybrid Query")
	logger.Debug("Document %s: query=%q", idx.documentID, queryText)

	queryEmbedding, err := m.queryEmbedding(ctx, queryText)
	if err != nil {
		return nil, err
	}

	// Score both signals independently over the full chunk set.
	// Each query builds its own transient ranking arrays; nothing here
	// is shared across concurrent queries.
	dense := make([]float64, len(idx.entries))
	lexical := make([]float64, len(idx.entries))
	queryTerms := tokenize(queryText)
	for i, e := range idx.entries {
		dense[i] = cosineSimilarity(queryEmbedding, e.embedding)
		lexical[i] = lexicalScore(queryTerms, e.posting, idx.idf)
	}

	weight := opts.EffectiveWeight()
	denseNorm := minMaxNormalize(dense)
	lexicalNorm := minMaxNormalize(lexical)
	fused := fuse(denseNorm, lexicalNorm, weight)

	logger.Debug("Fusion weight: %.2f (dense) / %.2f (lexical)", weight, 1-weight)

	order := make([]int, len(idx.entries))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		if fused[order[a]] != fused[order[b]] {
			return fused[order[a]] > fused[order[b]]
		}
		// Earlier chunk wins on ties: deterministic, reproducible.
		return idx.entries[order[a]].chunk.Sequence < idx.entries[order[b]].chunk.Sequence
	})

	topK := opts.TopK
	if topK <= 0 || topK > len(order) {
		topK = len(order)
	}

	result := &domain.QueryResult{
		DocumentID: idx.documentID,
		Query:      queryText,
		Chunks:     make([]domain.RankedChunk, 0, topK),
	}
	for _, i := range order[:topK] {
		ranked := domain.RankedChunk{
			Chunk:        idx.entries[i].chunk,
			Score:        fused[i],
			DenseScore:   denseNorm[i],
			LexicalScore: lexicalNorm[i],
		}
		if opts.ExpandContext {
			// Expansion happens after ranking and never moves scores.
			ranked.Context = idx.neighbourContext(i)
		}
		result.Chunks = append(result.Chunks, ranked)
	}

	logger.Info("Query returned %d of %d chunks", len(result.Chunks), len(idx.entries))
	return result, nil
}

// queryEmbedding resolves the query embedding through the cache,
// keyed by the literal query text.
func (m *Manager) queryEmbedding(ctx context.Context, queryText string) ([]float32, error) {
	key := cache.TextKey(queryText)

	if raw, ok, err := m.cache.Get(ctx, cache.NamespaceQueryEmbedding, key); err != nil {
		return nil, fmt.Errorf("query embedding cache get: %w", err)
	} else if ok {
		logger.Debug("Query embedding: cache hit")
		return bytesToFloat32Slice(raw), nil
	}

	embedding, err := m.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}

	if err := m.cache.Put(ctx, cache.NamespaceQueryEmbedding, key, float32SliceToBytes(embedding), m.queryEmbeddingTTL); err != nil {
		return nil, fmt.Errorf("query embedding cache put: %w", err)
	}
	return embedding, nil
}

// neighbourContext joins the hit chunk with its immediate sequence
// neighbours.
func (idx *builtIndex) neighbourContext(i int) string {
	parts := make([]string, 0, 3)
	if i > 0 {
		parts = append(parts, strings.TrimSpace(idx.entries[i-1].chunk.Text))
	}
	parts = append(parts, strings.TrimSpace(idx.entries[i].chunk.Text))
	if i+1 < len(idx.entries) {
		parts = append(parts, strings.TrimSpace(idx.entries[i+1].chunk.Text))
	}
	return strings.Join(parts, " ")
}

// Drop discards a built index. Dropping an unknown handle is a no-op.
func (m *Manager) Drop(handle Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.indexes, handle)
}
