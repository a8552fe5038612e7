package interfaces

import (
	"context"

	"github.com/formulary-lab/rxquery/pkg/domain/model"
)

// Embedder encodes free text into fixed-dimension vectors. The same
// Embedder instance must encode both the corpus and the queries.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces a text completion for a prompt
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// NearestNeighborIndex searches corpus vectors by squared Euclidean
// distance. Positions returned by Search dereference the record sequence
// the index was built from, so the two must stay index-aligned.
type NearestNeighborIndex interface {
	Search(query []float32, topK int) []model.IndexHit
	Len() int
}

// DrugStore serves positional lookups into the canonical ordered
// sequence of formulary records. At returns nil for out-of-range
// positions.
type DrugStore interface {
	At(position int) *model.DrugRecord
	Count() int
	FindByNameOrCode(query string) []*model.DrugMatch
	Stats() *model.Stats
}

// AnswerService synthesizes a grounded natural-language answer from a
// question and the records retrieved for it
type AnswerService interface {
	Synthesize(ctx context.Context, question string, records []*model.DrugRecord) (string, error)
}
