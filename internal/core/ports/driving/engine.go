package driving

import (
	"context"

	"github.com/hearsay-labs/hearsay-cli/internal/core/domain"
)

// Engine is the stable request/response contract exposed to consumers.
//
// It sequences chunking and index construction per document and is the
// single entry point for queries. Distinct documents may be processed
// concurrently; calls for the same document are serialised.
type Engine interface {
	// Process runs the transcript through chunking and indexing.
	// Calling Process on an already-ready document with unchanged content
	// is a no-op that returns StateReady. A failed document is retried
	// only by calling Process again.
	Process(ctx context.Context, documentID, transcript, language string) (domain.DocumentState, error)

	// ProcessAudio transcribes the audio file (consulting the transcript
	// cache first) and then processes the result like Process.
	ProcessAudio(ctx context.Context, documentID, audioPath string) (domain.DocumentState, error)

	// Query answers a natural-language query against a ready document.
	// Returns *domain.NotReadyError when the document is still processing.
	Query(ctx context.Context, documentID, query string, opts domain.QueryOptions) (*domain.QueryResult, error)

	// State reports the current processing state of a document.
	State(documentID string) (domain.DocumentState, error)

	// FailureReason returns the preserved failure for a failed document.
	FailureReason(documentID string) error

	// Invalidate evicts the document's cached artifacts and discards
	// its index. The document must be reprocessed before querying.
	Invalidate(ctx context.Context, documentID string) error
}
