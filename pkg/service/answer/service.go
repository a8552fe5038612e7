package answer

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/formulary-lab/rxquery/pkg/domain/interfaces"
	"github.com/formulary-lab/rxquery/pkg/domain/model"
	"github.com/formulary-lab/rxquery/pkg/utils/logging"
)

// ErrUpstream indicates the external LLM call failed or returned no
// usable text. Never retried; the caller decides how to surface it.
var ErrUpstream = goerr.New("upstream LLM call failed")

const (
	defaultTimeout = 60 * time.Second

	// maxContextBytes caps the serialized record payload in the prompt.
	// Records past the cap are dropped from the context rather than
	// overflowing the model's context window.
	maxContextBytes = 16 * 1024
)

// Service builds grounded prompts from retrieved records and obtains a
// natural-language answer from the generator. No retry, no streaming.
type Service struct {
	generator interfaces.Generator
	timeout   time.Duration
}

// Option is a functional option for Service configuration
type Option func(*Service)

// WithTimeout bounds each generator call. Expiry surfaces as ErrUpstream.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.timeout = d
	}
}

// New creates an answer Service backed by the given generator
func New(generator interfaces.Generator, opts ...Option) (*Service, error) {
	if generator == nil {
		return nil, goerr.New("generator is required")
	}

	s := &Service{
		generator: generator,
		timeout:   defaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Synthesize answers the question using only the supplied records.
// The response text is returned trimmed and otherwise unmodified.
func (s *Service) Synthesize(ctx context.Context, question string, records []*model.DrugRecord) (string, error) {
	prompt, err := buildPrompt(ctx, question, records)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return "", goerr.Wrap(ErrUpstream, "generation failed", goerr.V("cause", err.Error()))
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", goerr.Wrap(ErrUpstream, "generator returned empty text")
	}

	return text, nil
}

// buildPrompt assembles the role instruction, the serialized records,
// and the verbatim question into a single prompt.
func buildPrompt(ctx context.Context, question string, records []*model.DrugRecord) (string, error) {
	data, err := serializeRecords(ctx, records)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("You are a helpful pharmaceutical assistant. Answer using ONLY the following structured drug data:\n\n")
	sb.WriteString(data)
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\n\nProvide a clear, concise answer. If the data doesn't contain enough information, say so.\n")

	return sb.String(), nil
}

// serializeRecords renders records as indented JSON in stable field
// order, dropping trailing records once the payload exceeds the cap.
func serializeRecords(ctx context.Context, records []*model.DrugRecord) (string, error) {
	for n := len(records); ; n-- {
		data, err := json.MarshalIndent(records[:n], "", "  ")
		if err != nil {
			return "", goerr.Wrap(err, "failed to serialize records")
		}
		if len(data) <= maxContextBytes || n == 0 {
			if n < len(records) {
				logging.From(ctx).Warn("Truncated prompt context",
					"records", len(records),
					"kept", n,
				)
			}
			return string(data), nil
		}
	}
}
