package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrChunking indicates degenerate chunker input: empty text or an
	// overlap that is not smaller than the target size. Not retryable;
	// the caller must fix the input.
	ErrChunking = errors.New("chunking failed")

	// ErrEmbeddingUnavailable indicates the embedding collaborator failed.
	// Retryable by the caller with backoff; the core never retries itself.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrTranscriptUnavailable indicates the transcription collaborator failed.
	// Retryable by the caller with backoff.
	ErrTranscriptUnavailable = errors.New("transcript unavailable")

	// ErrIndexBuild indicates an index build failed atomically.
	// No partial index is left reachable.
	ErrIndexBuild = errors.New("index build failed")

	// ErrIndexNotFound indicates a query referenced an unknown index handle.
	ErrIndexNotFound = errors.New("index not found")

	// ErrInvalidQuery indicates an empty or malformed query.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrDocumentNotFound indicates an unknown document ID.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrCancelled indicates processing was cancelled cooperatively.
	ErrCancelled = errors.New("processing cancelled")
)

// NotReadyError is returned when a document is queried before it
// reaches StateReady. It carries the state observed at call time so
// the caller can decide whether to wait or report.
type NotReadyError struct {
	DocumentID string
	State      DocumentState
}

// Error implements the error interface.
func (e *NotReadyError) Error() string {
	return fmt.Sprintf("document %s not ready: state is %s", e.DocumentID, e.State)
}

// IsNotReady reports whether err is a NotReadyError and returns it.
func IsNotReady(err error) (*NotReadyError, bool) {
	var nre *NotReadyError
	if errors.As(err, &nre) {
		return nre, true
	}
	return nil, false
}
