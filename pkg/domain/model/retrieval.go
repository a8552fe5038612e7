package model

// IndexHit is one nearest-neighbor result: the position of a corpus
// vector and its squared Euclidean distance from the query vector.
type IndexHit struct {
	Position int
	Distance float64
}

// ScoredDrug pairs a retrieved record with its distance from the query.
// RelevanceScore is 1/(1+distance), a monotonic rescaling of the distance
// with no other meaning.
type ScoredDrug struct {
	Record         *DrugRecord
	Distance       float64
	RelevanceScore float64
}

// NewScoredDrug builds a ScoredDrug from a record and its distance
func NewScoredDrug(record *DrugRecord, distance float64) ScoredDrug {
	return ScoredDrug{
		Record:         record,
		Distance:       distance,
		RelevanceScore: 1 / (1 + distance),
	}
}

// Answer is the synthesized response to a formulary question together
// with the records it was grounded on, ordered by ascending distance.
type Answer struct {
	Question string
	Text     string
	Drugs    []ScoredDrug
}
