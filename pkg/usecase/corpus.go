package usecase

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/formulary-lab/rxquery/pkg/domain/interfaces"
	"github.com/formulary-lab/rxquery/pkg/domain/model"
)

// CorpusUseCase serves lookups and statistics over the loaded formulary
type CorpusUseCase struct {
	store  interfaces.DrugStore
	source model.Source
}

// NewCorpusUseCase creates a new CorpusUseCase instance
func NewCorpusUseCase(store interfaces.DrugStore, source model.Source) *CorpusUseCase {
	return &CorpusUseCase{
		store:  store,
		source: source,
	}
}

// Source returns the attribution for the loaded formulary
func (uc *CorpusUseCase) Source() model.Source {
	return uc.source
}

// Count returns the number of loaded records
func (uc *CorpusUseCase) Count() int {
	return uc.store.Count()
}

// Stats returns corpus totals and frequency tables
func (uc *CorpusUseCase) Stats(ctx context.Context) *model.Stats {
	return uc.store.Stats()
}

// Lookup finds drugs by name or HCPCS code substring, with their
// preferred alternatives
func (uc *CorpusUseCase) Lookup(ctx context.Context, query string) ([]*model.DrugMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, goerr.Wrap(ErrInvalidInput, "lookup query is required")
	}

	return uc.store.FindByNameOrCode(query), nil
}
