package usecase

import (
	"github.com/formulary-lab/rxquery/pkg/domain/interfaces"
	"github.com/formulary-lab/rxquery/pkg/domain/model"
)

const defaultTopK = 5

type UseCases struct {
	store  interfaces.DrugStore
	source model.Source
	topK   int

	Query  *QueryUseCase
	Corpus *CorpusUseCase
}

type Option func(*UseCases)

// WithSource sets the attribution attached to every response
func WithSource(source model.Source) Option {
	return func(uc *UseCases) {
		uc.source = source
	}
}

// WithTopK sets how many records are retrieved per question
func WithTopK(topK int) Option {
	return func(uc *UseCases) {
		if topK > 0 {
			uc.topK = topK
		}
	}
}

func New(store interfaces.DrugStore, embedder interfaces.Embedder, index interfaces.NearestNeighborIndex, answer interfaces.AnswerService, opts ...Option) *UseCases {
	uc := &UseCases{
		store: store,
		topK:  defaultTopK,
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.Query = NewQueryUseCase(store, embedder, index, answer, uc.topK)
	uc.Corpus = NewCorpusUseCase(store, uc.source)

	return uc
}
