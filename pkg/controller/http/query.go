package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/m-mizutani/goerr/v2"

	"github.com/formulary-lab/rxquery/pkg/domain/model"
	"github.com/formulary-lab/rxquery/pkg/usecase"
	"github.com/formulary-lab/rxquery/pkg/utils/errutil"
	"github.com/formulary-lab/rxquery/pkg/utils/safe"
)

type queryRequest struct {
	Question string `json:"question"`
}

type scoredDrugResponse struct {
	*model.DrugRecord
	RelevanceScore float64 `json:"relevance_score"`
}

type queryResponse struct {
	Question      string               `json:"question"`
	Answer        string               `json:"answer"`
	RelevantDrugs []scoredDrugResponse `json:"relevant_drugs"`
	SourceURL     string               `json:"source_url"`
}

// queryHandler answers a formulary question. Missing or empty questions
// are a 400; any pipeline failure is a 500 with the error message and no
// partial results.
func queryHandler(uc *usecase.QueryUseCase, source model.Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req queryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errutil.HandleHTTP(ctx, w, goerr.Wrap(usecase.ErrInvalidInput, "invalid request body"), http.StatusBadRequest)
			return
		}

		answer, err := uc.Ask(ctx, req.Question)
		if err != nil {
			errutil.HandleHTTP(ctx, w, err, statusOf(err))
			return
		}

		resp := queryResponse{
			Question:      answer.Question,
			Answer:        answer.Text,
			RelevantDrugs: make([]scoredDrugResponse, len(answer.Drugs)),
			SourceURL:     source.URL,
		}
		for i, drug := range answer.Drugs {
			resp.RelevantDrugs[i] = scoredDrugResponse{
				DrugRecord:     drug.Record,
				RelevanceScore: drug.RelevanceScore,
			}
		}

		writeJSON(w, r, resp)
	}
}

type healthResponse struct {
	Status     string `json:"status"`
	TotalDrugs int    `json:"total_drugs"`
	Source     string `json:"source"`
}

func healthHandler(uc *usecase.CorpusUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, healthResponse{
			Status:     "healthy",
			TotalDrugs: uc.Count(),
			Source:     uc.Source().Name,
		})
	}
}

type statsResponse struct {
	TotalDrugs int            `json:"total_drugs"`
	Categories map[string]int `json:"categories"`
	Statuses   map[string]int `json:"statuses"`
	Source     string         `json:"source"`
	SourceURL  string         `json:"source_url"`
}

func statsHandler(uc *usecase.CorpusUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := uc.Stats(r.Context())
		writeJSON(w, r, statsResponse{
			TotalDrugs: stats.TotalDrugs,
			Categories: stats.Categories,
			Statuses:   stats.Statuses,
			Source:     uc.Source().Name,
			SourceURL:  uc.Source().URL,
		})
	}
}

type drugsResponse struct {
	Query   string             `json:"query"`
	Results []*model.DrugMatch `json:"results"`
}

// drugsHandler looks up drugs by name or HCPCS code substring
func drugsHandler(uc *usecase.CorpusUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		query := r.URL.Query().Get("q")
		matches, err := uc.Lookup(ctx, query)
		if err != nil {
			errutil.HandleHTTP(ctx, w, err, statusOf(err))
			return
		}
		if matches == nil {
			matches = []*model.DrugMatch{}
		}

		writeJSON(w, r, drugsResponse{Query: query, Results: matches})
	}
}

func statusOf(err error) int {
	if errors.Is(err, usecase.ErrInvalidInput) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	safe.Write(r.Context(), w, data)
}
