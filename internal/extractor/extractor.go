// Package extractor turns sanitized claim content into a structured
// interpretation via an OpenAI-compatible model.
package extractor

import "context"

// Result is the structured interpretation returned by the model, after
// defaulting. Missing fields default to 0.5 confidence, "unknown" enums,
// and empty collections.
type Result struct {
	ParseConfidence   float64        `json:"parseConfidence"`
	MarketType        string         `json:"marketType"`
	StrategyType      string         `json:"strategyType"`
	EdgeSource        string         `json:"edgeSource"`
	Summary           string         `json:"summary"`
	Parameters        map[string]any `json:"parameters"`
	MarketIdentifiers []string       `json:"marketIdentifiers"`
	ClaimedEdge       string         `json:"claimedEdge"`
	Warnings          []string       `json:"warnings"`
}

// Extractor is the interface for the extraction collaborator.
type Extractor interface {
	Extract(ctx context.Context, content string) (*Result, error)
}

// Fake is a canned extractor for tests.
type Fake struct {
	Result *Result
	Err    error
}

func (f *Fake) Extract(ctx context.Context, content string) (*Result, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Result, nil
}
