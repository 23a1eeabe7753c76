// Package index provides nearest-neighbor lookup over the corpus
// passage embeddings. Implementations report raw distances; turning a
// distance into a relevance score is the search engine's job.
package index

import "context"

// Neighbor is one hit from the index: the passage's stable row id and
// the raw distance under the implementation's metric (lower is
// closer for every implementation in this package).
type Neighbor struct {
	ID       int64
	Distance float64
}

type Index interface {
	Query(ctx context.Context, vec []float32, k int) ([]Neighbor, error)
}
