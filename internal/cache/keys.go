package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Keys are content-derived, never random: identical inputs always hit
// the same record. Canonicalisation lives here so every caller builds
// keys the same way.

// TextKey returns the cache key for a text payload: the hex SHA-256 of
// the text. Embeddings keyed this way are shared across documents with
// identical chunk text.
func TextKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// QueryKey returns the cache key for one query against one document.
// The document ID prefixes the key so InvalidatePrefix can drop all of
// a document's cached results at once.
func QueryKey(documentID, query string, topK int, weight float64, expand bool) string {
	canonical := fmt.Sprintf("%s\x00%s\x00%d\x00%.6f\x00%t", documentID, query, topK, weight, expand)
	sum := sha256.Sum256([]byte(canonical))
	return documentID + ":" + hex.EncodeToString(sum[:])
}
