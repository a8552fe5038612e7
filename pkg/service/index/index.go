package index

import (
	"context"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"github.com/formulary-lab/rxquery/pkg/domain/interfaces"
	"github.com/formulary-lab/rxquery/pkg/domain/model"
)

// Index is an exact nearest-neighbor index over formulary embedding
// vectors. Search is brute-force squared Euclidean distance, which is
// fine at this corpus scale (hundreds to low thousands of records).
//
// Vectors and records are positionally aligned 1:1: Search returns the
// positions of the closest vectors, and callers dereference those
// positions against the record sequence the index was built from. The
// index is built once and read-only afterwards, so concurrent searches
// need no coordination.
type Index struct {
	mu      sync.RWMutex
	vectors [][]float32
	records []*model.DrugRecord
}

// Build encodes every record with the embedder and returns the index.
// The vector at position i always corresponds to records[i].
func Build(ctx context.Context, embedder interfaces.Embedder, records []*model.DrugRecord) (*Index, error) {
	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.EmbeddingText()
	}

	var vectors [][]float32
	if len(texts) > 0 {
		embedded, err := embedder.Embed(ctx, texts)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to encode corpus", goerr.V("records", len(records)))
		}
		vectors = embedded
	}

	return newIndex(vectors, records), nil
}

func newIndex(vectors [][]float32, records []*model.DrugRecord) *Index {
	copied := make([]*model.DrugRecord, len(records))
	for i, r := range records {
		copied[i] = r.Clone()
	}
	return &Index{vectors: vectors, records: copied}
}

// Len returns the number of indexed vectors
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.vectors)
}

// Records returns the record sequence the index was built from, in
// index-aligned order
func (x *Index) Records() []*model.DrugRecord {
	x.mu.RLock()
	defer x.mu.RUnlock()

	result := make([]*model.DrugRecord, len(x.records))
	for i, r := range x.records {
		result[i] = r.Clone()
	}
	return result
}

// Search returns the positions of the topK vectors closest to query by
// squared Euclidean distance, ascending. Ties keep original position
// order. topK larger than the corpus is clamped, not an error.
func (x *Index) Search(query []float32, topK int) []model.IndexHit {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if topK <= 0 || len(x.vectors) == 0 {
		return nil
	}

	hits := make([]model.IndexHit, len(x.vectors))
	for i, vec := range x.vectors {
		hits[i] = model.IndexHit{Position: i, Distance: squaredL2(query, vec)}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})

	if topK > len(hits) {
		topK = len(hits)
	}
	return hits[:topK]
}

func squaredL2(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var sum float64
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}

	// Dimension mismatch: treat missing components as zero
	for i := n; i < len(a); i++ {
		sum += float64(a[i]) * float64(a[i])
	}
	for i := n; i < len(b); i++ {
		sum += float64(b[i]) * float64(b[i])
	}

	return sum
}
