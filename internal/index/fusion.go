package index

// Score fusion: each ranking is min-max rescaled to [0, 1] within
// itself, then blended linearly. The weight is the single tunable knob;
// ties in the fused score break by document sequence order so rankings
// are reproducible and cache-hit equivalent.

// minMaxNormalize rescales scores to [0, 1] within the slice.
// A degenerate ranking where every score is equal normalises to all
// zeros, contributing nothing to the fused score.
func minMaxNormalize(scores []float64) []float64 {
	if len(scores) == 0 {
		return nil
	}
	lo, hi := scores[0], scores[0]
	for _, s := range scores[1:] {
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}
	out := make([]float64, len(scores))
	span := hi - lo
	if span == 0 {
		return out
	}
	for i, s := range scores {
		out[i] = (s - lo) / span
	}
	return out
}

// fuse blends the two normalised rankings with dense weight w.
func fuse(dense, lexical []float64, w float64) []float64 {
	out := make([]float64, len(dense))
	for i := range dense {
		out[i] = w*dense[i] + (1-w)*lexical[i]
	}
	return out
}
