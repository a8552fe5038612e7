package usecase

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for the use case layer
var (
	ErrInvalidInput = goerr.New("invalid input")
	ErrEmptyCorpus  = goerr.New("no formulary records loaded")
)

// Context keys for error values
const (
	QuestionKey = "question"
	TopKKey     = "top_k"
)
