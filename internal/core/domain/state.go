package domain

// DocumentState is the processing state of a document.
//
// The lifecycle is strictly sequential:
//
//	Pending -> Chunking -> Indexing -> Ready
//
// with Failed reachable from any non-terminal state. A Failed document
// re-enters Pending only via a fresh Process call; there is no implicit
// retry inside the state machine.
type DocumentState string

const (
	// StatePending means the document is known but processing has not started.
	StatePending DocumentState = "pending"

	// StateChunking means the transcript is being split into chunks.
	StateChunking DocumentState = "chunking"

	// StateIndexing means the hybrid index is being built.
	StateIndexing DocumentState = "indexing"

	// StateReady means the document is queryable.
	StateReady DocumentState = "ready"

	// StateFailed means processing stopped with an unrecovered error.
	StateFailed DocumentState = "failed"
)

// Terminal reports whether the state admits no further transitions
// short of a fresh Process call.
func (s DocumentState) Terminal() bool {
	return s == StateReady || s == StateFailed
}

// CanTransition reports whether moving from s to next is a legal
// state-machine transition.
func (s DocumentState) CanTransition(next DocumentState) bool {
	if next == StateFailed {
		return !s.Terminal()
	}
	switch s {
	case StatePending:
		return next == StateChunking
	case StateChunking:
		return next == StateIndexing
	case StateIndexing:
		return next == StateReady
	default:
		return false
	}
}
