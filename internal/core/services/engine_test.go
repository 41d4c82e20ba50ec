package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearsay-labs/hearsay-cli/internal/adapters/driven/cache/memory"
	"github.com/hearsay-labs/hearsay-cli/internal/cache"
	"github.com/hearsay-labs/hearsay-cli/internal/chunker"
	"github.com/hearsay-labs/hearsay-cli/internal/core/domain"
	"github.com/hearsay-labs/hearsay-cli/internal/core/ports/driven"
	"github.com/hearsay-labs/hearsay-cli/internal/index"
)

const sampleTranscript = "The sun is a star. It is very hot. Stars produce light through fusion."

// stubEmbedder returns a constant vector and counts calls.
type stubEmbedder struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (s *stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail {
		return nil, errors.New("embedder down")
	}
	return []float32{1, 0, 0}, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		v, err := s.Embed(ctx, texts[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int   { return 3 }
func (s *stubEmbedder) ModelName() string { return "stub" }
func (s *stubEmbedder) Close() error      { return nil }

func (s *stubEmbedder) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubEmbedder) setFail(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fail
}

// stubTranscriber returns a fixed transcript and counts calls.
type stubTranscriber struct {
	mu         sync.Mutex
	calls      int
	err        error
	transcript driven.Transcript
}

func (s *stubTranscriber) Transcribe(context.Context, string) (*driven.Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	t := s.transcript
	return &t, nil
}

func (s *stubTranscriber) ModelName() string { return "stub-whisper" }

func (s *stubTranscriber) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// gateEmbedder blocks inside the first Embed call until released, so a
// build can be held mid-flight while another goroutine inspects the
// document.
type gateEmbedder struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGateEmbedder() *gateEmbedder {
	return &gateEmbedder{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gateEmbedder) Embed(ctx context.Context, _ string) ([]float32, error) {
	g.once.Do(func() { close(g.entered) })
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return []float32{1, 0, 0}, nil
}

func (g *gateEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		v, err := g.Embed(ctx, texts[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (g *gateEmbedder) Dimensions() int   { return 3 }
func (g *gateEmbedder) ModelName() string { return "gate" }
func (g *gateEmbedder) Close() error      { return nil }

func newTestEngine(embedder driven.EmbeddingService, opts ...EngineOption) *Engine {
	cacheManager := cache.NewManager(memory.NewTier(), memory.NewTier())
	indexes := index.NewManager(embedder, cacheManager)
	c := chunker.New(chunker.WithTargetSize(30), chunker.WithOverlap(0))
	return NewEngine(c, indexes, cacheManager, opts...)
}

func TestProcess_ReachesReady(t *testing.T) {
	e := newTestEngine(&stubEmbedder{})

	state, err := e.Process(context.Background(), "doc-1", sampleTranscript, "en")

	require.NoError(t, err)
	assert.Equal(t, domain.StateReady, state)

	got, err := e.State("doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateReady, got)
	assert.Nil(t, e.FailureReason("doc-1"))
}

func TestProcess_ChunkingFailureEndsInFailed(t *testing.T) {
	e := newTestEngine(&stubEmbedder{})

	state, err := e.Process(context.Background(), "doc-1", "   ", "en")

	require.Error(t, err)
	assert.Equal(t, domain.StateFailed, state)
	assert.ErrorIs(t, e.FailureReason("doc-1"), domain.ErrChunking)
}

func TestProcess_EmbedderFailureEndsInFailed(t *testing.T) {
	embedder := &stubEmbedder{fail: true}
	e := newTestEngine(embedder)

	state, err := e.Process(context.Background(), "doc-1", sampleTranscript, "en")

	require.Error(t, err)
	assert.Equal(t, domain.StateFailed, state)
	assert.ErrorIs(t, e.FailureReason("doc-1"), domain.ErrEmbeddingUnavailable)

	// A failed document stays failed until Process is called again.
	got, err := e.State("doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateFailed, got)
}

func TestProcess_RetryAfterFailure(t *testing.T) {
	embedder := &stubEmbedder{fail: true}
	e := newTestEngine(embedder)
	ctx := context.Background()

	_, err := e.Process(ctx, "doc-1", sampleTranscript, "en")
	require.Error(t, err)

	embedder.setFail(false)
	state, err := e.Process(ctx, "doc-1", sampleTranscript, "en")

	require.NoError(t, err)
	assert.Equal(t, domain.StateReady, state)
	assert.Nil(t, e.FailureReason("doc-1"))
}

func TestProcess_UnchangedContentIsNoOp(t *testing.T) {
	embedder := &stubEmbedder{}
	e := newTestEngine(embedder)
	ctx := context.Background()

	_, err := e.Process(ctx, "doc-1", sampleTranscript, "en")
	require.NoError(t, err)
	calls := embedder.callCount()

	state, err := e.Process(ctx, "doc-1", sampleTranscript, "en")

	require.NoError(t, err)
	assert.Equal(t, domain.StateReady, state)
	assert.Equal(t, calls, embedder.callCount(), "reprocessing identical content must not embed again")
}

func TestProcess_ChangedContentRebuilds(t *testing.T) {
	embedder := &stubEmbedder{}
	e := newTestEngine(embedder)
	ctx := context.Background()

	_, err := e.Process(ctx, "doc-1", sampleTranscript, "en")
	require.NoError(t, err)

	result, err := e.Query(ctx, "doc-1", "stars", domain.QueryOptions{TopK: 1})
	require.NoError(t, err)
	require.Len(t, result.Chunks, 1)

	state, err := e.Process(ctx, "doc-1", "Entirely new content. About something else.", "en")
	require.NoError(t, err)
	assert.Equal(t, domain.StateReady, state)

	// Old query answers are gone with the old index.
	result, err = e.Query(ctx, "doc-1", "stars", domain.QueryOptions{TopK: 1})
	require.NoError(t, err)
	require.Len(t, result.Chunks, 1)
	assert.NotContains(t, result.Chunks[0].Chunk.Text, "sun")
}

func TestProcess_CancelledContext(t *testing.T) {
	e := newTestEngine(&stubEmbedder{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	state, err := e.Process(ctx, "doc-1", sampleTranscript, "en")

	require.Error(t, err)
	assert.Equal(t, domain.StateFailed, state)
	assert.ErrorIs(t, err, domain.ErrCancelled)
}

func TestQuery_EmptyText(t *testing.T) {
	e := newTestEngine(&stubEmbedder{})

	_, err := e.Query(context.Background(), "doc-1", "  ", domain.QueryOptions{})

	assert.ErrorIs(t, err, domain.ErrInvalidQuery)
}

func TestQuery_UnknownDocument(t *testing.T) {
	e := newTestEngine(&stubEmbedder{})

	_, err := e.Query(context.Background(), "ghost", "anything", domain.QueryOptions{})

	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestQuery_NotReadyDocument(t *testing.T) {
	e := newTestEngine(&stubEmbedder{})
	ctx := context.Background()

	_, err := e.Process(ctx, "doc-1", "   ", "en")
	require.Error(t, err)

	_, err = e.Query(ctx, "doc-1", "anything", domain.QueryOptions{})

	notReady, ok := domain.IsNotReady(err)
	require.True(t, ok, "expected NotReadyError, got %v", err)
	assert.Equal(t, "doc-1", notReady.DocumentID)
	assert.Equal(t, domain.StateFailed, notReady.State)
}

func TestQuery_MidPipelineStateIsReported(t *testing.T) {
	embedder := newGateEmbedder()
	e := newTestEngine(embedder)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = e.Process(ctx, "doc-1", sampleTranscript, "en")
	}()

	// The embedder is parked inside the build, so the document is
	// mid-pipeline right now. Callers must see that, not block.
	<-embedder.entered

	state, err := e.State("doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateIndexing, state)

	_, err = e.Query(ctx, "doc-1", "anything", domain.QueryOptions{})
	notReady, ok := domain.IsNotReady(err)
	require.True(t, ok, "expected NotReadyError, got %v", err)
	assert.Equal(t, "doc-1", notReady.DocumentID)
	assert.Equal(t, domain.StateIndexing, notReady.State)

	close(embedder.release)
	<-done

	state, err = e.State("doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateReady, state)
}

func TestQuery_ResultsAreCached(t *testing.T) {
	embedder := &stubEmbedder{}
	e := newTestEngine(embedder)
	ctx := context.Background()

	_, err := e.Process(ctx, "doc-1", sampleTranscript, "en")
	require.NoError(t, err)

	first, err := e.Query(ctx, "doc-1", "why do stars shine", domain.QueryOptions{TopK: 2})
	require.NoError(t, err)
	calls := embedder.callCount()

	second, err := e.Query(ctx, "doc-1", "why do stars shine", domain.QueryOptions{TopK: 2})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, calls, embedder.callCount(), "a repeated query must be served from cache")
}

func TestQuery_DefaultTopK(t *testing.T) {
	e := newTestEngine(&stubEmbedder{}, WithDefaultTopK(2))
	ctx := context.Background()

	_, err := e.Process(ctx, "doc-1", sampleTranscript, "en")
	require.NoError(t, err)

	result, err := e.Query(ctx, "doc-1", "stars", domain.QueryOptions{})
	require.NoError(t, err)
	assert.Len(t, result.Chunks, 2)
}

func TestProcessAudio_TranscriptIsMemoised(t *testing.T) {
	transcriber := &stubTranscriber{transcript: driven.Transcript{
		Text:     sampleTranscript,
		Language: "en",
		Duration: 70 * time.Second,
	}}
	e := newTestEngine(&stubEmbedder{}, WithTranscriber(transcriber))
	ctx := context.Background()

	state, err := e.ProcessAudio(ctx, "doc-1", "talk.mp3")
	require.NoError(t, err)
	assert.Equal(t, domain.StateReady, state)
	assert.Equal(t, 1, transcriber.callCount())

	// Reprocessing the same document hits the transcript cache.
	_, err = e.ProcessAudio(ctx, "doc-1", "talk.mp3")
	require.NoError(t, err)
	assert.Equal(t, 1, transcriber.callCount())
}

func TestProcessAudio_ChunksCarryTimeRanges(t *testing.T) {
	transcriber := &stubTranscriber{transcript: driven.Transcript{
		Text:     sampleTranscript,
		Language: "en",
		Duration: 70 * time.Second,
	}}
	e := newTestEngine(&stubEmbedder{}, WithTranscriber(transcriber))
	ctx := context.Background()

	_, err := e.ProcessAudio(ctx, "doc-1", "talk.mp3")
	require.NoError(t, err)

	result, err := e.Query(ctx, "doc-1", "fusion", domain.QueryOptions{TopK: 10})
	require.NoError(t, err)
	require.NotEmpty(t, result.Chunks)

	var sawRange bool
	for _, ranked := range result.Chunks {
		if ranked.Chunk.EndTime > 0 {
			sawRange = true
			assert.LessOrEqual(t, ranked.Chunk.StartTime, ranked.Chunk.EndTime)
			assert.LessOrEqual(t, ranked.Chunk.EndTime, 70*time.Second)
		}
	}
	assert.True(t, sawRange, "expected estimated time ranges on chunks")
}

func TestProcessAudio_NoTranscriberConfigured(t *testing.T) {
	e := newTestEngine(&stubEmbedder{})

	state, err := e.ProcessAudio(context.Background(), "doc-1", "talk.mp3")

	require.Error(t, err)
	assert.Equal(t, domain.StateFailed, state)
	assert.ErrorIs(t, err, domain.ErrTranscriptUnavailable)
}

func TestProcessAudio_TranscriberFailure(t *testing.T) {
	transcriber := &stubTranscriber{err: errors.New("audio service down")}
	e := newTestEngine(&stubEmbedder{}, WithTranscriber(transcriber))

	state, err := e.ProcessAudio(context.Background(), "doc-1", "talk.mp3")

	require.Error(t, err)
	assert.Equal(t, domain.StateFailed, state)
	assert.ErrorIs(t, err, domain.ErrTranscriptUnavailable)
}

func TestProcessAudio_FailureLeavesReadyDocumentIntact(t *testing.T) {
	e := newTestEngine(&stubEmbedder{})
	ctx := context.Background()

	_, err := e.Process(ctx, "doc-1", sampleTranscript, "en")
	require.NoError(t, err)

	// No transcriber is configured, so the audio run fails before the
	// pipeline starts. The document built from text stays ready with
	// no failure reason attached.
	state, err := e.ProcessAudio(ctx, "doc-1", "talk.mp3")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTranscriptUnavailable)
	assert.Equal(t, domain.StateReady, state)
	assert.Nil(t, e.FailureReason("doc-1"))

	result, err := e.Query(ctx, "doc-1", "stars", domain.QueryOptions{TopK: 1})
	require.NoError(t, err)
	assert.Len(t, result.Chunks, 1)
}

func TestInvalidate_ForgetsDocument(t *testing.T) {
	e := newTestEngine(&stubEmbedder{})
	ctx := context.Background()

	_, err := e.Process(ctx, "doc-1", sampleTranscript, "en")
	require.NoError(t, err)

	require.NoError(t, e.Invalidate(ctx, "doc-1"))

	_, err = e.State("doc-1")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
	_, err = e.Query(ctx, "doc-1", "stars", domain.QueryOptions{})
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestInvalidate_ForcesRetranscription(t *testing.T) {
	transcriber := &stubTranscriber{transcript: driven.Transcript{
		Text:     sampleTranscript,
		Language: "en",
	}}
	e := newTestEngine(&stubEmbedder{}, WithTranscriber(transcriber))
	ctx := context.Background()

	_, err := e.ProcessAudio(ctx, "doc-1", "talk.mp3")
	require.NoError(t, err)
	require.NoError(t, e.Invalidate(ctx, "doc-1"))

	_, err = e.ProcessAudio(ctx, "doc-1", "talk.mp3")
	require.NoError(t, err)
	assert.Equal(t, 2, transcriber.callCount())
}

func TestConcurrentDistinctDocuments(t *testing.T) {
	e := newTestEngine(&stubEmbedder{})
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i))
			_, errs[i] = e.Process(ctx, id, sampleTranscript, "en")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "document %d", i)
	}
}
