package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tokens := tokenize("The Sun's core is hot, very hot!")

	// Stopwords ("the", "is", "very") are dropped, case folds, and the
	// apostrophe stays inside its word.
	assert.Equal(t, []string{"sun's", "core", "hot", "hot"}, tokens)
}

func TestTokenize_Empty(t *testing.T) {
	assert.Nil(t, tokenize(""))
	assert.Empty(t, tokenize("... 42 !!"))
}

func TestComputeIDF_RarerTermsScoreHigher(t *testing.T) {
	postings := []posting{
		newPosting("stars produce light"),
		newPosting("stars are hot"),
		newPosting("fusion powers stars"),
	}

	idf := computeIDF(postings)

	// "stars" appears everywhere, "fusion" once.
	assert.Less(t, idf["stars"], idf["fusion"])
	// Smoothed IDF never drops below 1.
	assert.GreaterOrEqual(t, idf["stars"], 1.0)
}

func TestLexicalScore(t *testing.T) {
	postings := []posting{
		newPosting("stars produce light through fusion"),
		newPosting("water boils when heated"),
	}
	idf := computeIDF(postings)
	query := tokenize("why do stars shine light")

	hit := lexicalScore(query, postings[0], idf)
	miss := lexicalScore(query, postings[1], idf)

	assert.Greater(t, hit, 0.0)
	assert.Equal(t, 0.0, miss)
}

func TestLexicalScore_EmptyPosting(t *testing.T) {
	idf := map[string]float64{}

	assert.Equal(t, 0.0, lexicalScore([]string{"stars"}, posting{}, idf))
	assert.Equal(t, 0.0, lexicalScore(nil, newPosting("stars"), idf))
}

func TestMinMaxNormalize(t *testing.T) {
	out := minMaxNormalize([]float64{2, 6, 4})

	assert.Equal(t, []float64{0, 1, 0.5}, out)
}

func TestMinMaxNormalize_DegenerateRanking(t *testing.T) {
	// All-equal scores carry no signal and normalise to zeros.
	out := minMaxNormalize([]float64{3, 3, 3})

	assert.Equal(t, []float64{0, 0, 0}, out)
	assert.Nil(t, minMaxNormalize(nil))
}

func TestFuse(t *testing.T) {
	dense := []float64{1, 0}
	lexical := []float64{0, 1}

	assert.Equal(t, []float64{1, 0}, fuse(dense, lexical, 1.0))
	assert.Equal(t, []float64{0, 1}, fuse(dense, lexical, 0.0))

	blended := fuse(dense, lexical, 0.7)
	assert.InDelta(t, 0.7, blended[0], 1e-9)
	assert.InDelta(t, 0.3, blended[1], 1e-9)
}

func TestFloat32SliceRoundTrip(t *testing.T) {
	in := []float32{0.5, -1.25, 3.75}

	out := bytesToFloat32Slice(float32SliceToBytes(in))

	assert.Equal(t, in, out)
	assert.Nil(t, float32SliceToBytes(nil))
	assert.Nil(t, bytesToFloat32Slice(nil))
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, cosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Equal(t, 0.0, cosineSimilarity(nil, nil))
	assert.Equal(t, 0.0, cosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}
