package formulary_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/formulary-lab/rxquery/pkg/domain/model"
	"github.com/formulary-lab/rxquery/pkg/repository/formulary"
)

func fixtureRecords() []*model.DrugRecord {
	return []*model.DrugRecord{
		{Category: "X", Status: "preferred", Name: "A", Code: "C1", Manufacturer: "M1"},
		{Category: "X", Status: "preferred", Name: "B", Code: "C2", Manufacturer: "M2"},
		{Category: "Y", Status: "non-preferred", Name: "D", Code: "C3", Manufacturer: "M3"},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "formulary.json")

	store := formulary.New(fixtureRecords())
	gt.NoError(t, store.Save(path)).Required()

	loaded, err := formulary.Load(path)
	gt.NoError(t, err).Required()

	original := store.Records()
	reloaded := loaded.Records()
	gt.Value(t, len(reloaded)).Equal(len(original))
	for i := range original {
		gt.Value(t, *reloaded[i]).Equal(*original[i])
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := formulary.Load(filepath.Join(t.TempDir(), "absent.json"))
	gt.Error(t, err)
	gt.Bool(t, errors.Is(err, formulary.ErrStorage)).True()
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	gt.NoError(t, os.WriteFile(path, []byte("{not json"), 0600)).Required()

	_, err := formulary.Load(path)
	gt.Error(t, err)
	gt.Bool(t, errors.Is(err, formulary.ErrStorage)).True()
}

func TestCacheFieldNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "formulary.json")
	store := formulary.New(fixtureRecords()[:1])
	gt.NoError(t, store.Save(path)).Required()

	data, err := os.ReadFile(path)
	gt.NoError(t, err).Required()

	for _, field := range []string{`"Category"`, `"Drug Status"`, `"Drug Name"`, `"HCPCS"`, `"Manufacturer"`} {
		gt.Bool(t, strings.Contains(string(data), field)).True()
	}
}

func TestFindByNameOrCode(t *testing.T) {
	store := formulary.New(fixtureRecords())

	t.Run("preferred alternatives share the category", func(t *testing.T) {
		matches := store.FindByNameOrCode("A")
		gt.Array(t, matches).Length(1)
		gt.Value(t, matches[0].Drug).Equal("A")
		gt.Value(t, matches[0].Code).Equal("C1")
		gt.Bool(t, matches[0].Preferred).True()
		gt.Value(t, matches[0].PreferredAlternatives).Equal([]string{"C2"})
	})

	t.Run("no preferred alternatives in category", func(t *testing.T) {
		matches := store.FindByNameOrCode("D")
		gt.Array(t, matches).Length(1)
		gt.Bool(t, matches[0].Preferred).False()
		gt.Value(t, matches[0].PreferredAlternatives).Equal([]string{})
	})

	t.Run("matches code substring case-insensitively", func(t *testing.T) {
		matches := store.FindByNameOrCode("c2")
		gt.Array(t, matches).Length(1)
		gt.Value(t, matches[0].Drug).Equal("B")
	})

	t.Run("no match", func(t *testing.T) {
		matches := store.FindByNameOrCode("zzz")
		gt.Array(t, matches).Length(0)
	})
}

func TestStats(t *testing.T) {
	store := formulary.New(fixtureRecords())

	stats := store.Stats()
	gt.Value(t, stats.TotalDrugs).Equal(3)
	gt.Value(t, stats.Categories).Equal(map[string]int{"X": 2, "Y": 1})
	gt.Value(t, stats.Statuses).Equal(map[string]int{"preferred": 2, "non-preferred": 1})
}

func TestStatsUnknownBucket(t *testing.T) {
	store := formulary.New([]*model.DrugRecord{
		{Name: "A", Code: "C1"},
		{Category: "X", Status: "preferred", Name: "B", Code: "C2"},
	})

	stats := store.Stats()
	gt.Value(t, stats.Categories["Unknown"]).Equal(1)
	gt.Value(t, stats.Statuses["Unknown"]).Equal(1)
}

func TestRecordsAreCopies(t *testing.T) {
	store := formulary.New(fixtureRecords())

	records := store.Records()
	records[0].Name = "mutated"

	gt.Value(t, store.Records()[0].Name).Equal("A")
}

func TestAt(t *testing.T) {
	store := formulary.New(fixtureRecords())

	record := store.At(1)
	gt.Value(t, record.Name).Equal("B")

	// Out-of-range positions return nil rather than panicking
	gt.Bool(t, store.At(-1) == nil).True()
	gt.Bool(t, store.At(3) == nil).True()

	// Returned records are copies
	record.Name = "mutated"
	gt.Value(t, store.At(1).Name).Equal("B")
}

func TestFind(t *testing.T) {
	store := formulary.New(fixtureRecords())

	preferred := store.Find(func(r *model.DrugRecord) bool { return r.Preferred() })
	gt.Array(t, preferred).Length(2)
	gt.Value(t, preferred[0].Name).Equal("A")
	gt.Value(t, preferred[1].Name).Equal("B")
}
