package chunker

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter estimates the token length of a text.
type TokenCounter interface {
	Count(text string) int
}

// HeuristicCounter approximates token counts as one token per four
// characters, the usual rule of thumb for English BPE vocabularies.
// It is the default so that chunking stays dependency-free and pure.
type HeuristicCounter struct{}

// Count returns the estimated token count.
func (HeuristicCounter) Count(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + 3) / 4
}

// TikTokenCounter counts tokens with a real BPE encoding, matching what
// the embedding model will see.
type TikTokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTikTokenCounter loads the cl100k_base encoding.
func NewTikTokenCounter() (*TikTokenCounter, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding: %w", err)
	}
	return &TikTokenCounter{encoding: enc}, nil
}

// Count returns the exact token count under the loaded encoding.
func (t *TikTokenCounter) Count(text string) int {
	return len(t.encoding.Encode(text, nil, nil))
}
