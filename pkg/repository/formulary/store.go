package formulary

import (
	"encoding/json"
	"os"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"github.com/formulary-lab/rxquery/pkg/domain/model"
)

// ErrStorage indicates the record cache file is missing or corrupt.
// Fatal at startup; recoverable mid-run only by an explicit re-ingest.
var ErrStorage = goerr.New("record cache unavailable")

// Store holds the canonical ordered sequence of formulary records.
// The sequence is order-preserving and enforces no uniqueness on HCPCS
// codes. Records are immutable; the store hands out defensive copies.
type Store struct {
	mu      sync.RWMutex
	records []*model.DrugRecord
}

// New creates a Store over the given record sequence
func New(records []*model.DrugRecord) *Store {
	copied := make([]*model.DrugRecord, len(records))
	for i, r := range records {
		copied[i] = r.Clone()
	}
	return &Store{records: copied}
}

// Load reads the JSON record cache at path
func Load(path string) (*Store, error) {
	// #nosec G304 - path comes from CLI configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(ErrStorage, "failed to read record cache", goerr.V("path", path), goerr.V("cause", err.Error()))
	}

	var records []*model.DrugRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, goerr.Wrap(ErrStorage, "failed to parse record cache", goerr.V("path", path), goerr.V("cause", err.Error()))
	}

	return New(records), nil
}

// Save writes the record sequence as a JSON array to path
func (x *Store) Save(path string) error {
	x.mu.RLock()
	defer x.mu.RUnlock()

	data, err := json.MarshalIndent(x.records, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to marshal records")
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return goerr.Wrap(err, "failed to write record cache", goerr.V("path", path))
	}

	return nil
}

// Records returns a copy of the record sequence in original order
func (x *Store) Records() []*model.DrugRecord {
	x.mu.RLock()
	defer x.mu.RUnlock()

	result := make([]*model.DrugRecord, len(x.records))
	for i, r := range x.records {
		result[i] = r.Clone()
	}
	return result
}

// Count returns the number of records
func (x *Store) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.records)
}

// At returns the record at the given position, or nil if out of range
func (x *Store) At(position int) *model.DrugRecord {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if position < 0 || position >= len(x.records) {
		return nil
	}
	return x.records[position].Clone()
}

// Find returns every record matching the predicate, in original order
func (x *Store) Find(predicate func(*model.DrugRecord) bool) []*model.DrugRecord {
	x.mu.RLock()
	defer x.mu.RUnlock()

	var result []*model.DrugRecord
	for _, r := range x.records {
		if predicate(r) {
			result = append(result, r.Clone())
		}
	}
	return result
}

// FindByNameOrCode matches records whose name or HCPCS code contains the
// query (case-insensitive). Each match carries its preferred alternatives:
// every other record in the same category with status "preferred" and a
// different code. Codes are only trusted unique within a category.
func (x *Store) FindByNameOrCode(query string) []*model.DrugMatch {
	x.mu.RLock()
	defer x.mu.RUnlock()

	q := strings.ToLower(query)
	var results []*model.DrugMatch

	for _, drug := range x.records {
		if !strings.Contains(strings.ToLower(drug.Name), q) && !strings.Contains(strings.ToLower(drug.Code), q) {
			continue
		}

		alternatives := []string{}
		for _, other := range x.records {
			if other.Category == drug.Category && other.Preferred() && other.Code != drug.Code {
				alternatives = append(alternatives, other.Code)
			}
		}

		results = append(results, &model.DrugMatch{
			Drug:                  drug.Name,
			Code:                  drug.Code,
			Preferred:             drug.Preferred(),
			PreferredAlternatives: alternatives,
		})
	}

	return results
}

// Stats computes corpus totals and category/status frequency tables in a
// single pass. Empty fields fall into the "Unknown" bucket.
func (x *Store) Stats() *model.Stats {
	x.mu.RLock()
	defer x.mu.RUnlock()

	stats := &model.Stats{
		TotalDrugs: len(x.records),
		Categories: map[string]int{},
		Statuses:   map[string]int{},
	}

	for _, r := range x.records {
		category := r.Category
		if category == "" {
			category = "Unknown"
		}
		status := r.Status
		if status == "" {
			status = "Unknown"
		}
		stats.Categories[category]++
		stats.Statuses[status]++
	}

	return stats
}
