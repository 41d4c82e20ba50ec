package domain

// SearchMode selects how much credit the dense and lexical rankings get.
type SearchMode string

const (
	// SearchModeVector scores by dense similarity only.
	SearchModeVector SearchMode = "vector"

	// SearchModeKeyword scores by lexical relevance only.
	SearchModeKeyword SearchMode = "keyword"

	// SearchModeHybrid blends both signals. This is the default.
	SearchModeHybrid SearchMode = "hybrid"
)

// FusionWeight returns the dense-score weight for the mode.
// The keyword weight is always the complement.
func (m SearchMode) FusionWeight() float64 {
	switch m {
	case SearchModeVector:
		return 1.0
	case SearchModeKeyword:
		return 0.0
	default:
		return 0.7
	}
}

// QueryOptions configures a hybrid query.
type QueryOptions struct {
	// TopK is the maximum number of chunks to return.
	TopK int

	// Mode selects the fusion weight preset. Ignored when Weight is set.
	Mode SearchMode

	// Weight, when non-nil, overrides the mode's dense-score weight.
	// Must be in [0, 1].
	Weight *float64

	// ExpandContext attaches the sequence-order neighbours of each hit
	// after ranking. Expansion never influences scores.
	ExpandContext bool
}

// EffectiveWeight resolves the dense-score weight from Weight and Mode.
func (o QueryOptions) EffectiveWeight() float64 {
	if o.Weight != nil {
		return *o.Weight
	}
	mode := o.Mode
	if mode == "" {
		mode = SearchModeHybrid
	}
	return mode.FusionWeight()
}

// RankedChunk pairs a chunk with its fused relevance score.
type RankedChunk struct {
	// Chunk is the matched chunk.
	Chunk Chunk

	// Score is the fused relevance score in [0, 1].
	Score float64

	// DenseScore and LexicalScore are the normalised per-signal scores
	// that produced Score. Kept for inspection and testing.
	DenseScore   float64
	LexicalScore float64

	// Context is the hit text expanded with neighbouring chunks,
	// populated only when context expansion is enabled.
	Context string
}

// QueryResult is the ordered answer to one hybrid query.
// It is ephemeral: not persisted beyond its own cache entry.
type QueryResult struct {
	// DocumentID is the queried document.
	DocumentID string

	// Query is the original query text.
	Query string

	// Chunks are the ranked hits, best first.
	Chunks []RankedChunk
}
