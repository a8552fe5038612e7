package index

import (
	"context"
	"encoding/gob"
	"errors"
	"os"

	"github.com/m-mizutani/goerr/v2"

	"github.com/formulary-lab/rxquery/pkg/domain/interfaces"
	"github.com/formulary-lab/rxquery/pkg/domain/model"
	"github.com/formulary-lab/rxquery/pkg/utils/logging"
	"github.com/formulary-lab/rxquery/pkg/utils/safe"
)

// ErrMismatch indicates the cached embedding bundle does not line up
// with the current record sequence. Serving positional lookups from a
// misaligned bundle would return wrong records, so the only recovery
// is a full rebuild.
var ErrMismatch = goerr.New("embedding cache mismatch")

// bundle is the persisted form of the index: the vector array and the
// record array it is aligned with, stored together so a reload can
// never desynchronize them.
type bundle struct {
	Vectors [][]float32
	Records []*model.DrugRecord
}

// LoadCache reads a persisted embedding bundle from path
func LoadCache(path string) (*Index, error) {
	// #nosec G304 - path comes from CLI configuration
	f, err := os.Open(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open embedding cache", goerr.V("path", path))
	}
	defer safe.Close(context.Background(), f)

	var b bundle
	if err := gob.NewDecoder(f).Decode(&b); err != nil {
		return nil, goerr.Wrap(err, "failed to decode embedding cache", goerr.V("path", path))
	}

	if len(b.Vectors) != len(b.Records) {
		return nil, goerr.Wrap(ErrMismatch, "cached vectors and records differ in length",
			goerr.V("vectors", len(b.Vectors)),
			goerr.V("records", len(b.Records)))
	}

	return newIndex(b.Vectors, b.Records), nil
}

// SaveCache persists the vector and record arrays as one bundle
func (x *Index) SaveCache(path string) error {
	x.mu.RLock()
	defer x.mu.RUnlock()

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return goerr.Wrap(err, "failed to create embedding cache", goerr.V("path", path))
	}
	defer safe.Close(context.Background(), f)

	b := bundle{Vectors: x.vectors, Records: x.records}
	if err := gob.NewEncoder(f).Encode(&b); err != nil {
		return goerr.Wrap(err, "failed to encode embedding cache", goerr.V("path", path))
	}

	return nil
}

// LoadOrBuild reuses the cached bundle at path when its record count
// matches the current record sequence. A missing, corrupt, or
// mismatched cache triggers a full recompute and overwrites the file.
func LoadOrBuild(ctx context.Context, path string, embedder interfaces.Embedder, records []*model.DrugRecord) (*Index, error) {
	logger := logging.From(ctx)

	if cached, err := LoadCache(path); err == nil {
		if cached.Len() == len(records) {
			logger.Info("Loaded embedding cache", "path", path, "vectors", cached.Len())
			return cached, nil
		}
		logger.Warn("Embedding cache out of sync, rebuilding",
			"path", path,
			"cached", cached.Len(),
			"records", len(records),
		)
	} else if !errors.Is(err, os.ErrNotExist) {
		logger.Warn("Failed to load embedding cache, rebuilding", "path", path, "error", err.Error())
	}

	built, err := Build(ctx, embedder, records)
	if err != nil {
		return nil, err
	}

	if err := built.SaveCache(path); err != nil {
		return nil, err
	}
	logger.Info("Built embedding cache", "path", path, "vectors", built.Len())

	return built, nil
}
