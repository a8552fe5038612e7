package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/gt"

	httpctrl "github.com/formulary-lab/rxquery/pkg/controller/http"
	"github.com/formulary-lab/rxquery/pkg/domain/model"
	"github.com/formulary-lab/rxquery/pkg/repository/formulary"
	"github.com/formulary-lab/rxquery/pkg/usecase"
)

type fakeEmbedder struct {
	vector []float32
	calls  int
}

func (x *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	x.calls++
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = x.vector
	}
	return result, nil
}

type fakeIndex struct {
	hits []model.IndexHit
}

func (x *fakeIndex) Search(query []float32, topK int) []model.IndexHit {
	if topK > len(x.hits) {
		topK = len(x.hits)
	}
	return x.hits[:topK]
}

func (x *fakeIndex) Len() int { return len(x.hits) }

type fakeAnswer struct {
	text  string
	err   error
	calls int
}

func (x *fakeAnswer) Synthesize(ctx context.Context, question string, records []*model.DrugRecord) (string, error) {
	x.calls++
	if x.err != nil {
		return "", x.err
	}
	return x.text, nil
}

func fixtureStore() *formulary.Store {
	return formulary.New([]*model.DrugRecord{
		{Category: "X", Status: "preferred", Name: "A", Code: "C1", Manufacturer: "M1"},
		{Category: "X", Status: "preferred", Name: "B", Code: "C2", Manufacturer: "M2"},
		{Category: "Y", Status: "non-preferred", Name: "D", Code: "C3", Manufacturer: "M3"},
	})
}

func newServer(embedder *fakeEmbedder, idx *fakeIndex, ans *fakeAnswer) *httpctrl.Server {
	uc := usecase.New(fixtureStore(), embedder, idx, ans,
		usecase.WithSource(model.Source{
			Name: "Test Formulary",
			URL:  "https://example.com/formulary",
		}),
		usecase.WithTopK(3),
	)
	return httpctrl.New(uc)
}

func defaultServer() (*httpctrl.Server, *fakeEmbedder, *fakeAnswer) {
	embedder := &fakeEmbedder{vector: []float32{1, 0, 0}}
	idx := &fakeIndex{hits: []model.IndexHit{
		{Position: 0, Distance: 0},
		{Position: 1, Distance: 1},
	}}
	ans := &fakeAnswer{text: "A is preferred."}
	return newServer(embedder, idx, ans), embedder, ans
}

func TestHealth(t *testing.T) {
	srv, _, _ := defaultServer()

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	gt.Value(t, rec.Code).Equal(http.StatusOK)

	var body struct {
		Status     string `json:"status"`
		TotalDrugs int    `json:"total_drugs"`
		Source     string `json:"source"`
	}
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body)).Required()
	gt.Value(t, body.Status).Equal("healthy")
	gt.Value(t, body.TotalDrugs).Equal(3)
	gt.Value(t, body.Source).Equal("Test Formulary")
}

func TestStats(t *testing.T) {
	srv, _, _ := defaultServer()

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	gt.Value(t, rec.Code).Equal(http.StatusOK)

	var body struct {
		TotalDrugs int            `json:"total_drugs"`
		Categories map[string]int `json:"categories"`
		Statuses   map[string]int `json:"statuses"`
		SourceURL  string         `json:"source_url"`
	}
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body)).Required()
	gt.Value(t, body.TotalDrugs).Equal(3)
	gt.Value(t, body.Categories).Equal(map[string]int{"X": 2, "Y": 1})
	gt.Value(t, body.Statuses).Equal(map[string]int{"preferred": 2, "non-preferred": 1})
	gt.Value(t, body.SourceURL).Equal("https://example.com/formulary")
}

func TestQuery(t *testing.T) {
	srv, _, _ := defaultServer()

	payload := bytes.NewBufferString(`{"question": "Is A preferred?"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/query", payload)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	gt.Value(t, rec.Code).Equal(http.StatusOK)

	var body struct {
		Question      string `json:"question"`
		Answer        string `json:"answer"`
		RelevantDrugs []struct {
			Name           string  `json:"Drug Name"`
			Code           string  `json:"HCPCS"`
			RelevanceScore float64 `json:"relevance_score"`
		} `json:"relevant_drugs"`
		SourceURL string `json:"source_url"`
	}
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body)).Required()

	gt.Value(t, body.Question).Equal("Is A preferred?")
	gt.Value(t, body.Answer).Equal("A is preferred.")
	gt.Value(t, body.SourceURL).Equal("https://example.com/formulary")

	gt.Array(t, body.RelevantDrugs).Length(2)
	gt.Value(t, body.RelevantDrugs[0].Name).Equal("A")
	gt.Value(t, body.RelevantDrugs[0].RelevanceScore).Equal(1.0)
	gt.Value(t, body.RelevantDrugs[1].Name).Equal("B")
	gt.Value(t, body.RelevantDrugs[1].RelevanceScore).Equal(0.5)
}

func TestQueryEmptyQuestion(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{1}}
	ans := &fakeAnswer{text: "unused"}
	srv := newServer(embedder, &fakeIndex{}, ans)

	for _, payload := range []string{`{"question": ""}`, `{"question": "   "}`, `{}`} {
		req := httptest.NewRequest(http.MethodPost, "/api/query", bytes.NewBufferString(payload))
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		gt.Value(t, rec.Code).Equal(http.StatusBadRequest)

		var body struct {
			Error string `json:"error"`
		}
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body)).Required()
		gt.Bool(t, body.Error != "").True()
	}

	// The embedding model and the LLM are never touched
	gt.Value(t, embedder.calls).Equal(0)
	gt.Value(t, ans.calls).Equal(0)
}

func TestQueryMalformedBody(t *testing.T) {
	srv, _, _ := defaultServer()

	req := httptest.NewRequest(http.MethodPost, "/api/query", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	gt.Value(t, rec.Code).Equal(http.StatusBadRequest)
}

func TestQueryUpstreamFailure(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{1, 0, 0}}
	idx := &fakeIndex{hits: []model.IndexHit{{Position: 0, Distance: 0}}}
	ans := &fakeAnswer{err: errors.New("model unavailable")}
	srv := newServer(embedder, idx, ans)

	req := httptest.NewRequest(http.MethodPost, "/api/query", bytes.NewBufferString(`{"question": "anything"}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	gt.Value(t, rec.Code).Equal(http.StatusInternalServerError)

	// Error body only, no partial relevant_drugs
	var body map[string]json.RawMessage
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body)).Required()
	gt.Bool(t, body["error"] != nil).True()
	gt.Bool(t, body["relevant_drugs"] == nil).True()
}

func TestDrugsLookup(t *testing.T) {
	srv, _, _ := defaultServer()

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/drugs?q=A", nil))

	gt.Value(t, rec.Code).Equal(http.StatusOK)

	var body struct {
		Results []struct {
			Drug                  string   `json:"Drug"`
			Code                  string   `json:"Code"`
			Preferred             bool     `json:"Preferred"`
			PreferredAlternatives []string `json:"Preferred_Alternatives"`
		} `json:"results"`
	}
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body)).Required()
	gt.Array(t, body.Results).Length(1)
	gt.Value(t, body.Results[0].Drug).Equal("A")
	gt.Value(t, body.Results[0].PreferredAlternatives).Equal([]string{"C2"})
}

func TestDrugsLookupMissingQuery(t *testing.T) {
	srv, _, _ := defaultServer()

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/drugs", nil))

	gt.Value(t, rec.Code).Equal(http.StatusBadRequest)
}

func TestWithMiddleware(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{1}}
	uc := usecase.New(fixtureStore(), embedder, &fakeIndex{}, &fakeAnswer{text: "x"})

	tagged := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Instance", "test-1")
			next.ServeHTTP(w, r)
		})
	}
	srv := httpctrl.New(uc, httpctrl.WithMiddleware(tagged))

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	gt.Value(t, rec.Code).Equal(http.StatusOK)
	gt.Value(t, rec.Header().Get("X-Instance")).Equal("test-1")
}

func TestCORSPreflight(t *testing.T) {
	srv, _, _ := defaultServer()

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/query", nil))

	gt.Value(t, rec.Code).Equal(http.StatusNoContent)
	gt.Value(t, rec.Header().Get("Access-Control-Allow-Origin")).Equal("*")
}
