package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
)

func flagSource() Source {
	return Source{
		name:           "Flag Source",
		url:            "https://example.com/flags",
		document:       "page.html",
		recordsPath:    "data/records.json",
		embeddingsPath: "data/embeddings.gob",
		topK:           5,
	}
}

func TestSourceConfigureFromFlags(t *testing.T) {
	src := flagSource()

	settings, err := src.Configure()
	gt.NoError(t, err).Required()

	gt.Value(t, settings.Source.Name).Equal("Flag Source")
	gt.Value(t, settings.Source.URL).Equal("https://example.com/flags")
	gt.Value(t, settings.Document).Equal("page.html")
	gt.Value(t, settings.RecordsPath).Equal("data/records.json")
	gt.Value(t, settings.EmbeddingsPath).Equal("data/embeddings.gob")
	gt.Value(t, settings.TopK).Equal(5)
}

func TestSourceConfigureTOMLOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "source.toml")
	descriptor := `
name = "File Source"
document = "other.html"
top_k = 10
`
	gt.NoError(t, os.WriteFile(path, []byte(descriptor), 0600)).Required()

	src := flagSource()
	src.configPath = path

	settings, err := src.Configure()
	gt.NoError(t, err).Required()

	// TOML fields win, unset fields keep the flag values
	gt.Value(t, settings.Source.Name).Equal("File Source")
	gt.Value(t, settings.Document).Equal("other.html")
	gt.Value(t, settings.TopK).Equal(10)
	gt.Value(t, settings.Source.URL).Equal("https://example.com/flags")
	gt.Value(t, settings.RecordsPath).Equal("data/records.json")
}

func TestSourceConfigureMissingFile(t *testing.T) {
	src := flagSource()
	src.configPath = filepath.Join(t.TempDir(), "no-such.toml")

	_, err := src.Configure()
	gt.Error(t, err)
	gt.Bool(t, errors.Is(err, ErrConfigNotFound)).True()
}

func TestSourceConfigureCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	gt.NoError(t, os.WriteFile(path, []byte("name = [unclosed"), 0600)).Required()

	src := flagSource()
	src.configPath = path

	_, err := src.Configure()
	gt.Error(t, err)
	gt.Bool(t, errors.Is(err, ErrInvalidConfig)).True()
}

func TestSettingsValidate(t *testing.T) {
	cases := map[string]Settings{
		"missing records path":    {EmbeddingsPath: "e.gob", TopK: 5},
		"missing embeddings path": {RecordsPath: "r.json", TopK: 5},
		"non-positive top-k":      {RecordsPath: "r.json", EmbeddingsPath: "e.gob", TopK: 0},
	}

	for name, settings := range cases {
		t.Run(name, func(t *testing.T) {
			err := settings.Validate()
			gt.Error(t, err)
			gt.Bool(t, errors.Is(err, ErrInvalidConfig)).True()
		})
	}
}
