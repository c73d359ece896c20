package claim

// Severity ranks how strongly a detection rule indicates manipulation.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// FlagType distinguishes the two detection rule families.
type FlagType string

const (
	FlagPromptInjection   FlagType = "prompt_injection"
	FlagSuspiciousPattern FlagType = "suspicious_pattern"
)

// SecurityFlag is a single rule-match record for a piece of claim content.
type SecurityFlag struct {
	Type           FlagType `json:"type"`
	Severity       Severity `json:"severity"`
	Description    string   `json:"description"`
	MatchedExcerpt string   `json:"matched_excerpt,omitempty"`
}

// Input is a claim submission as received from the caller.
// The pipeline treats it as read-only.
type Input struct {
	Source   string `json:"source"`
	Content  string `json:"content,omitempty"`
	SourceID string `json:"source_id,omitempty"`
}

// Parsed is the terminal output of a pipeline run. Every exit path of the
// pipeline produces one; blocked and failed runs carry ParseConfidence 0.
type Parsed struct {
	ID                string         `json:"id"`
	Input             Input          `json:"input"`
	ParseConfidence   float64        `json:"parse_confidence"`
	MarketType        string         `json:"market_type"`
	StrategyType      string         `json:"strategy_type"`
	EdgeSource        string         `json:"edge_source"`
	Summary           string         `json:"summary"`
	Parameters        map[string]any `json:"parameters"`
	MarketIdentifiers []string       `json:"market_identifiers,omitempty"`
	ClaimedEdge       string         `json:"claimed_edge,omitempty"`
	Warnings          []string       `json:"warnings"`
	SecurityFlags     []SecurityFlag `json:"security_flags"`
}
