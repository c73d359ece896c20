package scanner

import (
	"regexp"
	"strings"

	"github.com/edgeguard-ai/edgeguard/internal/claim"
	"github.com/edgeguard-ai/edgeguard/internal/guardmodel"
	"github.com/edgeguard-ai/edgeguard/internal/rules"
)

// Block policy: fixed thresholds, not configurable. Callers must not apply
// their own policy on top of ShouldBlock.
const (
	blockHighThreshold   = 1
	blockMediumThreshold = 3
)

var (
	invisibleRe  = regexp.MustCompile("[\u200b\u200c\u200d\u2060\ufeff]")
	markupTagRe  = regexp.MustCompile(`<[^<>]*>`)
	htmlEntityRe = regexp.MustCompile(`&#x?[0-9a-fA-F]{2,6};`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Scanner evaluates claim content against the detection rule set and,
// when a guard model is present, the ML scorer on top of it.
type Scanner struct {
	rules *rules.Set
	model *guardmodel.Model
}

// New returns a scanner over the default rule set. model may be nil, in
// which case scanning is rules-only.
func New(model *guardmodel.Model) *Scanner {
	return &Scanner{
		rules: rules.Default(),
		model: model,
	}
}

// Scan returns every flag raised for text, rule flags first.
func (s *Scanner) Scan(text string) []claim.SecurityFlag {
	flags := s.rules.Evaluate(text)
	if s.model != nil {
		flags = append(flags, s.model.Evaluate(text)...)
	}
	return flags
}

func (s *Scanner) ShouldBlock(flags []claim.SecurityFlag) bool { return ShouldBlock(flags) }

func (s *Scanner) Sanitize(text string) string { return Sanitize(text) }

// ShouldBlock reports whether the flags cross the block policy: at least
// one high-severity flag, or three or more medium-severity flags.
func ShouldBlock(flags []claim.SecurityFlag) bool {
	high, medium := 0, 0
	for _, f := range flags {
		switch f.Severity {
		case claim.SeverityHigh:
			high++
		case claim.SeverityMedium:
			medium++
		}
	}
	return high >= blockHighThreshold || medium >= blockMediumThreshold
}

// Sanitize strips invisible characters, markup tags, and HTML entity
// sequences, then collapses whitespace runs and trims. Idempotent.
func Sanitize(text string) string {
	out := invisibleRe.ReplaceAllString(text, "")
	for {
		stripped := markupTagRe.ReplaceAllString(out, "")
		if stripped == out {
			break
		}
		out = stripped
	}
	out = htmlEntityRe.ReplaceAllString(out, "")
	out = whitespaceRe.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}
