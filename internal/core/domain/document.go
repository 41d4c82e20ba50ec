package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Document represents one processed transcript.
// It is the unit of processing and querying: a document is chunked,
// indexed, and then answers queries until it is invalidated.
type Document struct {
	// ID is the stable identifier, derived from the source URL or
	// a content hash. It never changes across reprocessing.
	ID string

	// Transcript is the full spoken-word text.
	Transcript string

	// Language is the detected ISO 639-1 language code.
	Language string

	// Duration is the length of the source recording, when known.
	// Zero means unknown; chunk time ranges are then unavailable.
	Duration time.Duration

	// Fingerprint is the SHA-256 of the transcript text, recorded
	// when the document reaches StateReady. Reprocessing identical
	// content is a no-op.
	Fingerprint string

	// CreatedAt is when the document was first processed.
	CreatedAt time.Time
}

// Chunk represents a contiguous span of transcript text.
// Chunks are immutable once created and ordered by Sequence.
type Chunk struct {
	// ID is the deterministic chunk identifier:
	// SHA-256 over document ID, sequence index and text.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Sequence is the ordinal position within the document.
	// It defines document order and is the tie-breaker for ranking.
	Sequence int

	// Text is the chunk content.
	Text string

	// StartOffset and EndOffset are byte offsets into the transcript.
	StartOffset int
	EndOffset   int

	// StartTime and EndTime locate the chunk in the recording,
	// estimated proportionally from the offsets when the document
	// duration is known. Zero when unknown.
	StartTime time.Duration
	EndTime   time.Duration

	// Tokens is the estimated token length of Text.
	Tokens int

	// Oversized marks a chunk whose single semantic unit exceeded
	// the target size and was kept whole rather than cut mid-word.
	Oversized bool
}

// ChunkID computes the deterministic identifier for a chunk.
// Identical inputs always produce the same ID, which is what makes
// chunk-keyed caching a correctness-preserving optimisation.
func ChunkID(documentID string, sequence int, text string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%d\x00%s", documentID, sequence, text)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentFingerprint computes the SHA-256 fingerprint of transcript text.
func ContentFingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
