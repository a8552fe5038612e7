package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"

	"github.com/formulary-lab/rxquery/pkg/cli/config"
	"github.com/formulary-lab/rxquery/pkg/repository/formulary"
	"github.com/formulary-lab/rxquery/pkg/service/answer"
	"github.com/formulary-lab/rxquery/pkg/service/index"
	"github.com/formulary-lab/rxquery/pkg/service/llm"
	"github.com/formulary-lab/rxquery/pkg/usecase"
	"github.com/formulary-lab/rxquery/pkg/utils/logging"
)

// buildPipeline loads the cached records, reuses or rebuilds the
// embedding index, and wires the use cases. A missing or corrupt record
// cache is fatal here: the process must not serve partially loaded state.
func buildPipeline(ctx context.Context, settings *config.Settings, geminiCfg *config.Gemini) (*usecase.UseCases, error) {
	store, err := formulary.Load(settings.RecordsPath)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load record cache (run 'rxquery ingest' first)")
	}
	logging.From(ctx).Info("Loaded formulary records",
		"path", settings.RecordsPath,
		"records", store.Count(),
	)

	llmClient, err := geminiCfg.Configure(ctx)
	if err != nil {
		return nil, err
	}

	client, err := llm.New(llmClient)
	if err != nil {
		return nil, err
	}

	idx, err := index.LoadOrBuild(ctx, settings.EmbeddingsPath, client, store.Records())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to prepare embedding index")
	}

	answerSvc, err := answer.New(client)
	if err != nil {
		return nil, err
	}

	uc := usecase.New(store, client, idx, answerSvc,
		usecase.WithSource(settings.Source),
		usecase.WithTopK(settings.TopK),
	)

	return uc, nil
}
