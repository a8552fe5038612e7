package model

import (
	"fmt"
	"strings"
)

// EmbeddingDimension is the fixed vector size for formulary embeddings.
// Corpus and query vectors must be encoded with the same dimension;
// mismatched dimensions invalidate every distance computed over them.
const EmbeddingDimension = 384

// DrugRecord is a single formulary entry extracted from one table row.
// Field values are plain trimmed text and never null; a missing cell
// becomes an empty string. Records are immutable after extraction.
// The JSON field names match the cached formulary file format.
type DrugRecord struct {
	Category     string `json:"Category"`
	Status       string `json:"Drug Status"`
	Name         string `json:"Drug Name"`
	Code         string `json:"HCPCS"`
	Manufacturer string `json:"Manufacturer"`
}

// Preferred reports whether the record's status is "preferred" (case-insensitive)
func (x *DrugRecord) Preferred() bool {
	return strings.EqualFold(strings.TrimSpace(x.Status), "preferred")
}

// EmbeddingText returns the fixed textual template encoded into the
// record's embedding vector
func (x *DrugRecord) EmbeddingText() string {
	return fmt.Sprintf("%s %s %s %s", x.Name, x.Code, x.Category, x.Status)
}

// Clone returns a copy of the record
func (x *DrugRecord) Clone() *DrugRecord {
	copied := *x
	return &copied
}

// DrugMatch is the result of a name/code lookup: the matched drug plus
// the preferred alternatives sharing its category.
type DrugMatch struct {
	Drug                  string   `json:"Drug"`
	Code                  string   `json:"Code"`
	Preferred             bool     `json:"Preferred"`
	PreferredAlternatives []string `json:"Preferred_Alternatives"`
}

// Stats summarizes the formulary corpus
type Stats struct {
	TotalDrugs int            `json:"total_drugs"`
	Categories map[string]int `json:"categories"`
	Statuses   map[string]int `json:"statuses"`
}

// Source identifies where the formulary data was scraped from
type Source struct {
	Name string `json:"source"`
	URL  string `json:"source_url"`
}
