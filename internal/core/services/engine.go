package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hearsay-labs/hearsay-cli/internal/cache"
	"github.com/hearsay-labs/hearsay-cli/internal/chunker"
	"github.com/hearsay-labs/hearsay-cli/internal/core/domain"
	"github.com/hearsay-labs/hearsay-cli/internal/core/ports/driven"
	"github.com/hearsay-labs/hearsay-cli/internal/core/ports/driving"
	"github.com/hearsay-labs/hearsay-cli/internal/index"
	"github.com/hearsay-labs/hearsay-cli/internal/logger"
)

// Ensure Engine implements the interface.
var _ driving.Engine = (*Engine)(nil)

// Default engine configuration values.
const (
	// DefaultQueryTTL bounds cached query results.
	DefaultQueryTTL = time.Hour

	// DefaultTranscriptTTL bounds cached transcripts.
	DefaultTranscriptTTL = 24 * time.Hour

	// DefaultTopK is the result count when the caller does not ask
	// for one.
	DefaultTopK = 5
)

// documentRecord tracks one document's state machine.
// runMu serialises pipeline runs, so at most one build is in flight per
// document. mu guards the fields below and is held only for short reads
// and writes, never across chunking or embedding, so concurrent callers
// observe Chunking and Indexing while a build runs.
type documentRecord struct {
	runMu sync.Mutex

	mu      sync.Mutex
	doc     domain.Document
	state   domain.DocumentState
	handle  index.Handle
	failure error
}

// Engine is the per-document orchestration state machine.
//
// It sequences chunking and index construction, exposes the query
// entry point, and coordinates cache lookups and writes around each
// expensive step. The cache manager is the only state shared across
// concurrent document pipelines.
type Engine struct {
	chunker     *chunker.Chunker
	indexes     *index.Manager
	cache       *cache.Manager
	transcriber driven.Transcriber

	queryTTL      time.Duration
	transcriptTTL time.Duration
	defaultTopK   int

	mu   sync.RWMutex
	docs map[string]*documentRecord
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithTranscriber enables audio processing via the given collaborator.
func WithTranscriber(t driven.Transcriber) EngineOption {
	return func(e *Engine) {
		e.transcriber = t
	}
}

// WithQueryTTL sets the query-result cache TTL.
func WithQueryTTL(ttl time.Duration) EngineOption {
	return func(e *Engine) {
		if ttl > 0 {
			e.queryTTL = ttl
		}
	}
}

// WithTranscriptTTL sets the transcript cache TTL.
func WithTranscriptTTL(ttl time.Duration) EngineOption {
	return func(e *Engine) {
		if ttl > 0 {
			e.transcriptTTL = ttl
		}
	}
}

// WithDefaultTopK sets the result count used when a query does not
// specify one.
func WithDefaultTopK(k int) EngineOption {
	return func(e *Engine) {
		if k > 0 {
			e.defaultTopK = k
		}
	}
}

// NewEngine creates the orchestration engine.
func NewEngine(c *chunker.Chunker, indexes *index.Manager, cacheManager *cache.Manager, opts ...EngineOption) *Engine {
	e := &Engine{
		chunker:       c,
		indexes:       indexes,
		cache:         cacheManager,
		queryTTL:      DefaultQueryTTL,
		transcriptTTL: DefaultTranscriptTTL,
		defaultTopK:   DefaultTopK,
		docs:          make(map[string]*documentRecord),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Process runs the transcript through chunking and indexing.
func (e *Engine) Process(ctx context.Context, documentID, transcript, language string) (domain.DocumentState, error) {
	return e.process(ctx, documentID, transcript, language, 0)
}

// ProcessAudio transcribes the audio file and processes the result.
// The transcript is memoised per document, so reprocessing the same
// source never transcribes twice within the TTL.
func (e *Engine) ProcessAudio(ctx context.Context, documentID, audioPath string) (domain.DocumentState, error) {
	transcript, err := e.resolveTranscript(ctx, documentID, audioPath)
	if err != nil {
		rec := e.record(documentID)
		e.fail(rec, err)
		rec.mu.Lock()
		state := rec.state
		rec.mu.Unlock()
		return state, err
	}
	return e.process(ctx, documentID, transcript.Text, transcript.Language, transcript.Duration)
}

// cachedTranscript is the serialised form of a memoised transcript.
type cachedTranscript struct {
	Text            string `json:"text"`
	Language        string `json:"language"`
	DurationSeconds int64  `json:"duration_seconds"`
}

// resolveTranscript returns the transcript for the document, consulting
// the cache before the transcription collaborator.
func (e *Engine) resolveTranscript(ctx context.Context, documentID, audioPath string) (*driven.Transcript, error) {
	if raw, ok, err := e.cache.Get(ctx, cache.NamespaceTranscript, documentID); err != nil {
		return nil, fmt.Errorf("transcript cache get: %w", err)
	} else if ok {
		var ct cachedTranscript
		if err := json.Unmarshal(raw, &ct); err == nil {
			logger.Info("Transcript cache hit for %s", documentID)
			return &driven.Transcript{
				Text:     ct.Text,
				Language: ct.Language,
				Duration: time.Duration(ct.DurationSeconds) * time.Second,
			}, nil
		}
		logger.Warn("Discarding undecodable cached transcript for %s", documentID)
	}

	if e.transcriber == nil {
		return nil, fmt.Errorf("%w: no transcriber configured", domain.ErrTranscriptUnavailable)
	}

	transcript, err := e.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTranscriptUnavailable, err)
	}

	payload, err := json.Marshal(cachedTranscript{
		Text:            transcript.Text,
		Language:        transcript.Language,
		DurationSeconds: int64(transcript.Duration / time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("encode transcript: %w", err)
	}
	if err := e.cache.Put(ctx, cache.NamespaceTranscript, documentID, payload, e.transcriptTTL); err != nil {
		return nil, fmt.Errorf("transcript cache put: %w", err)
	}

	return transcript, nil
}

// process drives the state machine for one document.
// The run lock is held for the whole pipeline, so no two builds race
// for the same document, while each state change is published through
// the record's short-lived mutex for concurrent Query and State calls.
func (e *Engine) process(ctx context.Context, documentID, transcript, language string, duration time.Duration) (domain.DocumentState, error) {
	rec := e.record(documentID)
	rec.runMu.Lock()
	defer rec.runMu.Unlock()

	fingerprint := domain.ContentFingerprint(transcript)

	// Idempotent re-entry: reprocessing unchanged content is a no-op.
	rec.mu.Lock()
	if rec.state == domain.StateReady && rec.doc.Fingerprint == fingerprint {
		rec.mu.Unlock()
		logger.Info("Document %s already ready with identical content", documentID)
		return domain.StateReady, nil
	}

	// Fresh run: re-enter Pending and detach any previous index.
	oldHandle := rec.handle
	rec.handle = ""
	rec.state = domain.StatePending
	rec.failure = nil
	rec.mu.Unlock()

	if oldHandle != "" {
		e.indexes.Drop(oldHandle)
	}
	if err := e.cache.InvalidatePrefix(ctx, cache.NamespaceQuery, documentID); err != nil {
		logger.Warn("Query cache invalidation failed for %s: %v", documentID, err)
	}

	if err := e.transition(rec, domain.StateChunking); err != nil {
		return domain.StateFailed, err
	}
	logger.Section("Processing")
	logger.Debug("Document %s: chunking %d bytes", documentID, len(transcript))

	chunks, err := e.chunker.Chunk(documentID, transcript, language)
	if err != nil {
		e.fail(rec, err)
		return domain.StateFailed, err
	}

	// Cooperative cancellation between chunk-boundary and embedding
	// steps; never mid-arithmetic.
	if err := ctx.Err(); err != nil {
		err = fmt.Errorf("%w: %w", domain.ErrCancelled, err)
		e.fail(rec, err)
		return domain.StateFailed, err
	}

	if duration > 0 {
		estimateTimeRanges(chunks, len(transcript), duration)
	}

	if err := e.transition(rec, domain.StateIndexing); err != nil {
		return domain.StateFailed, err
	}
	logger.Debug("Document %s: indexing %d chunks", documentID, len(chunks))

	handle, err := e.indexes.Build(ctx, documentID, chunks)
	if err != nil {
		e.fail(rec, err)
		return domain.StateFailed, err
	}

	// The handle must be in place before Ready is published, or a
	// concurrent query could observe Ready with no index behind it.
	rec.mu.Lock()
	createdAt := rec.doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	rec.doc = domain.Document{
		ID:          documentID,
		Transcript:  transcript,
		Language:    language,
		Duration:    duration,
		Fingerprint: fingerprint,
		CreatedAt:   createdAt,
	}
	rec.handle = handle
	rec.mu.Unlock()

	if err := e.transition(rec, domain.StateReady); err != nil {
		return domain.StateFailed, err
	}

	logger.Info("Document %s ready (%d chunks)", documentID, len(chunks))
	return domain.StateReady, nil
}

// Query answers a natural-language query against a ready document.
func (e *Engine) Query(ctx context.Context, documentID, query string, opts domain.QueryOptions) (*domain.QueryResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query text", domain.ErrInvalidQuery)
	}

	rec, err := e.lookup(documentID)
	if err != nil {
		return nil, err
	}

	rec.mu.Lock()
	state := rec.state
	handle := rec.handle
	rec.mu.Unlock()

	if state != domain.StateReady {
		return nil, &domain.NotReadyError{DocumentID: documentID, State: state}
	}

	if opts.TopK <= 0 {
		opts.TopK = e.defaultTopK
	}

	key := cache.QueryKey(documentID, query, opts.TopK, opts.EffectiveWeight(), opts.ExpandContext)
	if raw, ok, err := e.cache.Get(ctx, cache.NamespaceQuery, key); err != nil {
		return nil, fmt.Errorf("query cache get: %w", err)
	} else if ok {
		var result domain.QueryResult
		if err := json.Unmarshal(raw, &result); err == nil {
			logger.Info("Query cache hit for %s", documentID)
			return &result, nil
		}
		logger.Warn("Discarding undecodable cached query result for %s", documentID)
	}

	result, err := e.indexes.Query(ctx, handle, query, opts)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode query result: %w", err)
	}
	if err := e.cache.Put(ctx, cache.NamespaceQuery, key, payload, e.queryTTL); err != nil {
		return nil, fmt.Errorf("query cache put: %w", err)
	}

	return result, nil
}

// State reports the current processing state of a document.
func (e *Engine) State(documentID string) (domain.DocumentState, error) {
	rec, err := e.lookup(documentID)
	if err != nil {
		return "", err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.state, nil
}

// FailureReason returns the preserved failure for a failed document,
// or nil when the document has not failed.
func (e *Engine) FailureReason(documentID string) error {
	rec, err := e.lookup(documentID)
	if err != nil {
		return err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.failure
}

// Invalidate evicts the document's cached artifacts and discards its
// index. Embeddings are content-addressed and shared across documents,
// so they are left to expire by TTL.
func (e *Engine) Invalidate(ctx context.Context, documentID string) error {
	if err := e.cache.InvalidatePrefix(ctx, cache.NamespaceQuery, documentID); err != nil {
		return fmt.Errorf("invalidate query cache: %w", err)
	}
	if err := e.cache.Invalidate(ctx, cache.NamespaceTranscript, documentID); err != nil {
		return fmt.Errorf("invalidate transcript cache: %w", err)
	}

	e.mu.Lock()
	rec, ok := e.docs[documentID]
	if ok {
		delete(e.docs, documentID)
	}
	e.mu.Unlock()

	if ok {
		rec.mu.Lock()
		if rec.handle != "" {
			e.indexes.Drop(rec.handle)
		}
		rec.mu.Unlock()
	}

	logger.Info("Document %s invalidated", documentID)
	return nil
}

// record returns the state record for a document, creating it in
// Pending when first seen.
func (e *Engine) record(documentID string) *documentRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.docs[documentID]
	if !ok {
		rec = &documentRecord{state: domain.StatePending}
		e.docs[documentID] = rec
	}
	return rec
}

// lookup returns the state record for a known document.
func (e *Engine) lookup(documentID string) (*documentRecord, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rec, ok := e.docs[documentID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, documentID)
	}
	return rec, nil
}

// transition moves the record to the next state, enforcing the legal
// transition table. An illegal transition is a programming error and is
// reported rather than silently applied.
func (e *Engine) transition(rec *documentRecord, next domain.DocumentState) error {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if !rec.state.CanTransition(next) {
		err := fmt.Errorf("illegal state transition %s -> %s", rec.state, next)
		e.failLocked(rec, err)
		return err
	}
	rec.state = next
	return nil
}

// fail moves the record to Failed, preserving the reason.
func (e *Engine) fail(rec *documentRecord, err error) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	e.failLocked(rec, err)
}

// failLocked requires rec.mu. A document that is already Ready keeps
// its state and a nil failure reason; failures outside a run, such as
// transcript resolution for an already-built document, must not
// blemish it.
func (e *Engine) failLocked(rec *documentRecord, err error) {
	logger.Warn("Processing failed: %v", err)
	if rec.state == domain.StateReady {
		return
	}
	rec.state = domain.StateFailed
	rec.failure = err
}

// estimateTimeRanges assigns proportional time ranges to chunks from
// their byte offsets. Good enough to jump near the right moment in the
// recording; exact word timing would need timestamped transcription.
func estimateTimeRanges(chunks []domain.Chunk, textLen int, duration time.Duration) {
	if textLen == 0 {
		return
	}
	for i := range chunks {
		start := time.Duration(float64(chunks[i].StartOffset) / float64(textLen) * float64(duration))
		end := time.Duration(float64(chunks[i].EndOffset) / float64(textLen) * float64(duration))
		chunks[i].StartTime = start.Round(time.Second)
		chunks[i].EndTime = end.Round(time.Second)
	}
}
