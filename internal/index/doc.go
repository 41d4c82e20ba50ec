// Package index builds and queries the hybrid dense+lexical index.
//
// One built index covers exactly the chunk set of one document, in
// sequence order. Dense similarity (cosine over embeddings) and lexical
// relevance (length-normalised term frequency with smoothed IDF) are
// scored independently over the full chunk set and combined by min-max
// normalisation plus a linear weight.
//
// Builds are atomic: either every chunk gets an entry or the whole
// build fails and nothing is reachable by Query. Embeddings are the
// only expensive artifact and are memoised through the cache manager;
// lexical postings are rebuilt in-process.
package index
