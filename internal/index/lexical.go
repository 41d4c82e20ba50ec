package index

import (
	"math"
	"regexp"
	"strings"
)

// Lexical scoring is a term-frequency model with length normalisation
// and smoothed inverse document frequency computed over the chunk set
// of one document. It is cheap to rebuild in-process, so unlike
// embeddings it is never cached.

var tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)

// posting is the term-frequency representation of one chunk.
type posting struct {
	counts map[string]int
	total  int
}

// tokenize lowercases the text and extracts word tokens, dropping
// stopwords.
func tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	if len(raw) == 0 {
		return nil
	}
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

// newPosting builds the posting for one chunk text.
func newPosting(text string) posting {
	tokens := tokenize(text)
	counts := make(map[string]int, len(tokens))
	for _, t := range tokens {
		counts[t]++
	}
	return posting{counts: counts, total: len(tokens)}
}

// computeIDF returns smoothed IDF values over the chunk postings.
func computeIDF(postings []posting) map[string]float64 {
	df := make(map[string]int)
	for _, p := range postings {
		for term := range p.counts {
			df[term]++
		}
	}
	idf := make(map[string]float64, len(df))
	n := float64(len(postings))
	for term, f := range df {
		idf[term] = math.Log((1+n)/(1+float64(f))) + 1.0
	}
	return idf
}

// lexicalScore scores one chunk posting against the query terms:
// the sum of idf-weighted, length-normalised term frequencies.
func lexicalScore(queryTerms []string, p posting, idf map[string]float64) float64 {
	if p.total == 0 || len(queryTerms) == 0 {
		return 0
	}
	score := 0.0
	for _, term := range queryTerms {
		count, ok := p.counts[term]
		if !ok {
			continue
		}
		tf := float64(count) / float64(p.total)
		score += tf * idf[term]
	}
	return score
}

// stopwords excluded from lexical postings and query terms.
var stopwords = func() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for",
		"to", "of", "in", "on", "at", "by", "with", "as", "is", "are",
		"was", "were", "be", "been", "being", "it", "this", "that",
		"these", "those", "from", "up", "down", "over", "under", "again",
		"further", "than", "so", "such", "into", "about", "between",
		"through", "during", "before", "after", "above", "below", "out",
		"off", "own", "same", "too", "very", "can", "will", "just",
		"don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()
