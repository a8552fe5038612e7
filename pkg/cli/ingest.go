package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/formulary-lab/rxquery/pkg/cli/config"
	"github.com/formulary-lab/rxquery/pkg/repository/formulary"
	"github.com/formulary-lab/rxquery/pkg/service/extract"
	"github.com/formulary-lab/rxquery/pkg/service/index"
	"github.com/formulary-lab/rxquery/pkg/service/llm"
	"github.com/formulary-lab/rxquery/pkg/utils/logging"
	"github.com/formulary-lab/rxquery/pkg/utils/safe"
)

func cmdIngest() *cli.Command {
	var sourceCfg config.Source
	var geminiCfg config.Gemini

	flags := append(sourceCfg.Flags(), geminiCfg.Flags()...)

	return &cli.Command{
		Name:    "ingest",
		Aliases: []string{"i"},
		Usage:   "Parse the formulary document and build the caches",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.From(ctx)

			settings, err := sourceCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to resolve source configuration")
			}

			// #nosec G304 - path is provided by CLI argument
			f, err := os.Open(settings.Document)
			if err != nil {
				return goerr.Wrap(err, "failed to open formulary document", goerr.V("path", settings.Document))
			}
			defer safe.Close(ctx, f)

			records, err := extract.Parse(f)
			if err != nil {
				return goerr.Wrap(err, "failed to extract records", goerr.V("path", settings.Document))
			}
			if len(records) == 0 {
				// Degrade to an empty corpus instead of aborting
				logger.Warn("No records extracted from document", "path", settings.Document)
			} else {
				logger.Info("Extracted records", "path", settings.Document, "records", len(records))
			}

			for _, dir := range []string{filepath.Dir(settings.RecordsPath), filepath.Dir(settings.EmbeddingsPath)} {
				if err := os.MkdirAll(dir, 0750); err != nil {
					return goerr.Wrap(err, "failed to create cache directory", goerr.V("dir", dir))
				}
			}

			store := formulary.New(records)
			if err := store.Save(settings.RecordsPath); err != nil {
				return err
			}
			logger.Info("Saved record cache", "path", settings.RecordsPath)

			llmClient, err := geminiCfg.Configure(ctx)
			if err != nil {
				return err
			}
			client, err := llm.New(llmClient)
			if err != nil {
				return err
			}

			idx, err := index.Build(ctx, client, store.Records())
			if err != nil {
				return goerr.Wrap(err, "failed to build embedding index")
			}
			if err := idx.SaveCache(settings.EmbeddingsPath); err != nil {
				return err
			}
			logger.Info("Saved embedding cache", "path", settings.EmbeddingsPath, "vectors", idx.Len())

			return nil
		},
	}
}
