package usecase

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"

	"github.com/formulary-lab/rxquery/pkg/domain/interfaces"
	"github.com/formulary-lab/rxquery/pkg/domain/model"
	"github.com/formulary-lab/rxquery/pkg/utils/logging"
)

// emptyCorpusAnswer is returned without calling the LLM when no records
// were extracted. The pipeline degrades instead of aborting.
const emptyCorpusAnswer = "No relevant drugs found: the formulary has no records loaded."

// QueryUseCase runs the retrieval pipeline: encode the question, search
// the index, dereference the matching records, and synthesize a grounded
// answer.
type QueryUseCase struct {
	store    interfaces.DrugStore
	embedder interfaces.Embedder
	index    interfaces.NearestNeighborIndex
	answer   interfaces.AnswerService
	topK     int
}

// NewQueryUseCase creates a new QueryUseCase instance
func NewQueryUseCase(store interfaces.DrugStore, embedder interfaces.Embedder, index interfaces.NearestNeighborIndex, answer interfaces.AnswerService, topK int) *QueryUseCase {
	return &QueryUseCase{
		store:    store,
		embedder: embedder,
		index:    index,
		answer:   answer,
		topK:     topK,
	}
}

// Retrieve returns the topK records most similar to the question, as
// (record, distance) pairs in ascending distance order. topK greater
// than the corpus size truncates to the available count. An empty
// corpus fails with ErrEmptyCorpus before any model call.
func (uc *QueryUseCase) Retrieve(ctx context.Context, question string, topK int) ([]model.ScoredDrug, error) {
	if topK <= 0 {
		return nil, goerr.Wrap(ErrInvalidInput, "top_k must be positive", goerr.V(TopKKey, topK))
	}
	if uc.store.Count() == 0 {
		return nil, goerr.Wrap(ErrEmptyCorpus, "nothing to retrieve from")
	}

	vectors, err := uc.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode question", goerr.V(QuestionKey, question))
	}
	if len(vectors) == 0 {
		return nil, goerr.New("embedder returned no vector for question", goerr.V(QuestionKey, question))
	}

	hits := uc.index.Search(vectors[0], topK)

	results := make([]model.ScoredDrug, 0, len(hits))
	for _, hit := range hits {
		record := uc.store.At(hit.Position)
		if record == nil {
			return nil, goerr.New("index position out of range",
				goerr.V("position", hit.Position),
				goerr.V("records", uc.store.Count()))
		}
		results = append(results, model.NewScoredDrug(record, hit.Distance))
	}

	return results, nil
}

// Ask answers a formulary question end to end. An empty question fails
// with ErrInvalidInput before any model call. Either both an answer and
// its supporting drugs are returned, or neither.
func (uc *QueryUseCase) Ask(ctx context.Context, question string) (*model.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, goerr.Wrap(ErrInvalidInput, "question is required")
	}

	queryID := uuid.Must(uuid.NewV7()).String()
	logger := logging.From(ctx).With("query_id", queryID)
	logger.Info("Processing question", "question", question)

	if uc.store.Count() == 0 {
		logger.Warn("Corpus is empty, skipping retrieval and generation")
		return &model.Answer{Question: question, Text: emptyCorpusAnswer}, nil
	}

	retrieved, err := uc.Retrieve(ctx, question, uc.topK)
	if err != nil {
		return nil, err
	}

	records := make([]*model.DrugRecord, len(retrieved))
	for i, r := range retrieved {
		records[i] = r.Record
	}

	text, err := uc.answer.Synthesize(ctx, question, records)
	if err != nil {
		return nil, err
	}

	logger.Info("Answered question", "retrieved", len(retrieved))

	return &model.Answer{
		Question: question,
		Text:     text,
		Drugs:    retrieved,
	}, nil
}
