// Package chunker splits transcripts into overlapping, semantically
// bounded chunks.
//
// Splitting follows a strict boundary priority: paragraph breaks first,
// then sentence breaks, then whitespace, with a hard character cut only
// when the text offers no boundary at all. A single sentence or paragraph
// larger than the target size is kept whole and flagged oversized rather
// than cut mid-thought.
package chunker

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/hearsay-labs/hearsay-cli/internal/core/domain"
)

// DefaultTargetSize is the default chunk budget in characters.
const DefaultTargetSize = 4000

// DefaultOverlap is the default trailing overlap in characters.
const DefaultOverlap = 400

// Chunker splits transcript text into chunks. It is a pure function
// over its inputs; chunking is cheap and never touches the cache.
type Chunker struct {
	targetSize int
	overlap    int
	counter    TokenCounter
}

// Option configures the chunker.
type Option func(*Chunker)

// WithTargetSize sets the chunk budget in characters.
func WithTargetSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.targetSize = size
		}
	}
}

// WithOverlap sets the overlap between adjacent chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// WithTokenCounter sets the token-length estimator.
func WithTokenCounter(counter TokenCounter) Option {
	return func(c *Chunker) {
		if counter != nil {
			c.counter = counter
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		targetSize: DefaultTargetSize,
		overlap:    DefaultOverlap,
		counter:    HeuristicCounter{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Chunk splits text into an ordered chunk sequence for the document.
//
// Each chunk's StartOffset/EndOffset delimit its own span of the
// original text; the overlap prefix is borrowed from the previous
// chunk's tail and is additional to that span, so concatenating the
// spans round-trips to the input.
func (c *Chunker) Chunk(documentID, text, language string) ([]domain.Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty text", domain.ErrChunking)
	}
	if c.overlap >= c.targetSize {
		return nil, fmt.Errorf("%w: overlap %d must be smaller than target size %d",
			domain.ErrChunking, c.overlap, c.targetSize)
	}
	_ = language // reserved for language-specific sentence rules

	var chunks []domain.Chunk
	cursor := 0
	prevStart, prevEnd := 0, 0

	for cursor < len(text) {
		end, oversized := c.cutPoint(text, cursor)

		body := text[cursor:end]
		content := body
		if len(chunks) > 0 && c.overlap > 0 {
			content = overlapTail(text[prevStart:prevEnd], c.overlap) + body
		}

		seq := len(chunks)
		chunks = append(chunks, domain.Chunk{
			ID:          domain.ChunkID(documentID, seq, content),
			DocumentID:  documentID,
			Sequence:    seq,
			Text:        content,
			StartOffset: cursor,
			EndOffset:   end,
			Tokens:      c.counter.Count(content),
			Oversized:   oversized,
		})

		prevStart, prevEnd = cursor, end
		cursor = end
	}

	return chunks, nil
}

// cutPoint finds where the chunk starting at cursor should end,
// following the boundary priority. The second return value reports
// whether the chunk holds an oversized semantic unit.
func (c *Chunker) cutPoint(text string, cursor int) (int, bool) {
	limit := cursor + c.targetSize
	if limit >= len(text) {
		return len(text), false
	}

	if p := lastParagraphBreak(text, cursor, limit); p > cursor {
		return p, false
	}
	if s := lastSentenceBreak(text, cursor, limit); s > cursor {
		return s, false
	}

	// No semantic boundary within budget. Keep the unit whole when one
	// ends later in the text, rather than cutting mid-thought.
	if n := nextSemanticBreak(text, limit); n > 0 {
		return n, true
	}

	if w := lastWhitespace(text, cursor, limit); w > cursor {
		return w, false
	}
	if w := nextWhitespace(text, limit); w > 0 {
		// One unbroken word longer than the budget; extend to its end.
		return w, true
	}

	// The input has no boundary at all: hard cut.
	return limit, false
}

// lastParagraphBreak returns the position just after the last blank-line
// separator in (from, to], or -1.
func lastParagraphBreak(text string, from, to int) int {
	for i := to; i > from; i-- {
		if text[i-1] != '\n' {
			continue
		}
		// Look for a second newline with only spaces between.
		j := i - 2
		for j >= from && (text[j] == ' ' || text[j] == '\t') {
			j--
		}
		if j >= from && text[j] == '\n' {
			return i
		}
	}
	return -1
}

// lastSentenceBreak returns the position just after the last sentence
// terminator (and its trailing whitespace run) in (from, to], or -1.
func lastSentenceBreak(text string, from, to int) int {
	for i := to; i > from; i-- {
		ch := text[i-1]
		if ch != ' ' && ch != '\n' && ch != '\t' {
			continue
		}
		j := i - 1
		for j > from && isSpaceByte(text[j-1]) {
			j--
		}
		if j > from && isTerminator(text[j-1]) {
			return i
		}
	}
	return -1
}

// nextSemanticBreak scans forward from pos for the end of the current
// sentence or paragraph. Returns -1 when the rest of the text has no
// semantic boundary.
func nextSemanticBreak(text string, pos int) int {
	for i := pos; i < len(text); i++ {
		if !isTerminator(text[i]) {
			continue
		}
		j := i + 1
		for j < len(text) && isSpaceByte(text[j]) {
			j++
		}
		if j > i+1 || j == len(text) {
			return j
		}
	}
	return -1
}

// lastWhitespace returns the position just after the last whitespace
// run in (from, to], or -1.
func lastWhitespace(text string, from, to int) int {
	for i := to; i > from; i-- {
		if isSpaceByte(text[i-1]) {
			return i
		}
	}
	return -1
}

// nextWhitespace scans forward for the end of the current word.
func nextWhitespace(text string, pos int) int {
	for i := pos; i < len(text); i++ {
		if isSpaceByte(text[i]) {
			return i
		}
	}
	return -1
}

// overlapTail returns up to budget trailing characters of prev,
// advanced to the next word boundary so the overlap never starts
// mid-word.
func overlapTail(prev string, budget int) string {
	if budget <= 0 || len(prev) == 0 {
		return ""
	}
	if len(prev) <= budget {
		return prev
	}
	tail := prev[len(prev)-budget:]
	if !isSpaceByte(prev[len(prev)-budget-1]) {
		if i := strings.IndexFunc(tail, unicode.IsSpace); i >= 0 {
			tail = tail[i+1:]
		}
	}
	return tail
}

func isTerminator(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}
