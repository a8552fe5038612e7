package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"

	"github.com/formulary-lab/rxquery/pkg/domain/model"
)

// Source holds CLI flags describing the formulary source: where the
// scraped document lives, where the caches go, and the attribution
// attached to every response. An optional TOML file can override the
// flag values.
type Source struct {
	configPath     string
	name           string
	url            string
	document       string
	recordsPath    string
	embeddingsPath string
	topK           int
}

// sourceFile is the TOML shape of a source descriptor
type sourceFile struct {
	Name       string `toml:"name"`
	URL        string `toml:"url"`
	Document   string `toml:"document"`
	Records    string `toml:"records"`
	Embeddings string `toml:"embeddings"`
	TopK       int64  `toml:"top_k"`
}

// Settings is the resolved source configuration
type Settings struct {
	Source         model.Source
	Document       string
	RecordsPath    string
	EmbeddingsPath string
	TopK           int
}

// Flags returns CLI flags for source configuration
func (s *Source) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "TOML source descriptor (overrides the flags below)",
			Category:    "Source",
			Sources:     cli.EnvVars("RXQUERY_CONFIG"),
			Destination: &s.configPath,
		},
		&cli.StringFlag{
			Name:        "source-name",
			Usage:       "Display name of the formulary source",
			Value:       "Horizon Blue Cross Blue Shield Formulary",
			Category:    "Source",
			Sources:     cli.EnvVars("RXQUERY_SOURCE_NAME"),
			Destination: &s.name,
		},
		&cli.StringFlag{
			Name:        "source-url",
			Usage:       "URL of the formulary source page",
			Value:       "https://www.horizonblue.com/providers/products-programs/pharmacy/pharmacy-programs/preferred-medical-drugs",
			Category:    "Source",
			Sources:     cli.EnvVars("RXQUERY_SOURCE_URL"),
			Destination: &s.url,
		},
		&cli.StringFlag{
			Name:        "document",
			Usage:       "Path to the scraped formulary HTML document",
			Value:       "page2.html",
			Category:    "Source",
			Sources:     cli.EnvVars("RXQUERY_DOCUMENT"),
			Destination: &s.document,
		},
		&cli.StringFlag{
			Name:        "records-cache",
			Usage:       "Path to the JSON record cache",
			Value:       "data/parsed/formulary.json",
			Category:    "Source",
			Sources:     cli.EnvVars("RXQUERY_RECORDS_CACHE"),
			Destination: &s.recordsPath,
		},
		&cli.StringFlag{
			Name:        "embeddings-cache",
			Usage:       "Path to the embedding bundle cache",
			Value:       "data/parsed/formulary_embeddings.gob",
			Category:    "Source",
			Sources:     cli.EnvVars("RXQUERY_EMBEDDINGS_CACHE"),
			Destination: &s.embeddingsPath,
		},
		&cli.IntFlag{
			Name:        "top-k",
			Usage:       "Number of records retrieved per question",
			Value:       5,
			Category:    "Source",
			Sources:     cli.EnvVars("RXQUERY_TOP_K"),
			Destination: &s.topK,
		},
	}
}

// Configure resolves the source settings, applying the TOML descriptor
// over the flag values when one is given.
func (s *Source) Configure() (*Settings, error) {
	settings := &Settings{
		Source: model.Source{
			Name: s.name,
			URL:  s.url,
		},
		Document:       s.document,
		RecordsPath:    s.recordsPath,
		EmbeddingsPath: s.embeddingsPath,
		TopK:           int(s.topK),
	}

	if s.configPath != "" {
		// #nosec G304 - path is provided by CLI argument
		data, err := os.ReadFile(s.configPath)
		if err != nil {
			return nil, goerr.Wrap(ErrConfigNotFound, "failed to read source descriptor", goerr.V("path", s.configPath))
		}

		var file sourceFile
		if err := toml.Unmarshal(data, &file); err != nil {
			return nil, goerr.Wrap(ErrInvalidConfig, "failed to parse source descriptor", goerr.V("path", s.configPath), goerr.V("cause", err.Error()))
		}

		if file.Name != "" {
			settings.Source.Name = file.Name
		}
		if file.URL != "" {
			settings.Source.URL = file.URL
		}
		if file.Document != "" {
			settings.Document = file.Document
		}
		if file.Records != "" {
			settings.RecordsPath = file.Records
		}
		if file.Embeddings != "" {
			settings.EmbeddingsPath = file.Embeddings
		}
		if file.TopK != 0 {
			settings.TopK = int(file.TopK)
		}
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return settings, nil
}

// Validate checks the resolved settings
func (s *Settings) Validate() error {
	if s.RecordsPath == "" {
		return goerr.Wrap(ErrInvalidConfig, "records cache path is required")
	}
	if s.EmbeddingsPath == "" {
		return goerr.Wrap(ErrInvalidConfig, "embeddings cache path is required")
	}
	if s.TopK <= 0 {
		return goerr.Wrap(ErrInvalidConfig, "top-k must be positive", goerr.V("top_k", s.TopK))
	}
	return nil
}
