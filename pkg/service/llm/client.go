package llm

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"

	"github.com/formulary-lab/rxquery/pkg/domain/model"
)

// Client adapts a gollem LLM client to the narrow Embedder and Generator
// interfaces used by the retrieval pipeline. The same client instance
// encodes both the corpus and the queries.
type Client struct {
	llmClient gollem.LLMClient
}

// New creates a new Client with the provided LLM client
func New(llmClient gollem.LLMClient) (*Client, error) {
	if llmClient == nil {
		return nil, goerr.New("LLM client is required")
	}
	return &Client{llmClient: llmClient}, nil
}

// Embed encodes the given texts into fixed-dimension vectors
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	embeddings, err := c.llmClient.GenerateEmbedding(ctx, model.EmbeddingDimension, texts)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate embeddings", goerr.V("count", len(texts)))
	}
	if len(embeddings) != len(texts) {
		return nil, goerr.New("embedding count mismatch",
			goerr.V("want", len(texts)),
			goerr.V("got", len(embeddings)))
	}

	result := make([][]float32, len(embeddings))
	for i, vec := range embeddings {
		converted := make([]float32, len(vec))
		for j, v := range vec {
			converted[j] = float32(v)
		}
		result[i] = converted
	}

	return result, nil
}

// Generate runs a single text completion and returns the trimmed response
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	session, err := c.llmClient.NewSession(ctx)
	if err != nil {
		return "", goerr.Wrap(err, "failed to create LLM session")
	}

	resp, err := session.GenerateContent(ctx, gollem.Text(prompt))
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate content from LLM")
	}

	if len(resp.Texts) == 0 {
		return "", goerr.New("LLM returned no text")
	}

	return strings.TrimSpace(strings.Join(resp.Texts, "\n")), nil
}
