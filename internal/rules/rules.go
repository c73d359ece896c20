package rules

import (
	"regexp"

	"github.com/edgeguard-ai/edgeguard/internal/claim"
)

// maxExcerptLen bounds the matched text carried on a flag.
const maxExcerptLen = 50

// Rule is a single detection rule. Exclude, when set, suppresses matches
// whose text also matches it (used for the URL allowlist).
type Rule struct {
	Pattern     *regexp.Regexp
	Exclude     *regexp.Regexp
	Severity    claim.Severity
	Description string
}

// Set holds the two rule families. Evaluation order is injection family
// first, then suspicious, preserving declaration order within each.
type Set struct {
	injection  []Rule
	suspicious []Rule
}

// Default returns the built-in rule set.
func Default() *Set {
	return &Set{
		injection:  injectionRules,
		suspicious: suspiciousRules,
	}
}

// Evaluate runs every rule against text and emits at most one flag per rule,
// carrying the first non-excluded match. It is deterministic and has no
// side effects.
func (s *Set) Evaluate(text string) []claim.SecurityFlag {
	var flags []claim.SecurityFlag
	for _, r := range s.injection {
		if excerpt, ok := firstMatch(r, text); ok {
			flags = append(flags, claim.SecurityFlag{
				Type:           claim.FlagPromptInjection,
				Severity:       r.Severity,
				Description:    r.Description,
				MatchedExcerpt: excerpt,
			})
		}
	}
	for _, r := range s.suspicious {
		if excerpt, ok := firstMatch(r, text); ok {
			flags = append(flags, claim.SecurityFlag{
				Type:           claim.FlagSuspiciousPattern,
				Severity:       r.Severity,
				Description:    r.Description,
				MatchedExcerpt: excerpt,
			})
		}
	}
	return flags
}

func firstMatch(r Rule, text string) (string, bool) {
	if r.Exclude == nil {
		m := r.Pattern.FindString(text)
		if m == "" {
			return "", false
		}
		return truncateExcerpt(m), true
	}
	for _, m := range r.Pattern.FindAllString(text, -1) {
		if !r.Exclude.MatchString(m) {
			return truncateExcerpt(m), true
		}
	}
	return "", false
}

func truncateExcerpt(s string) string {
	if len(s) <= maxExcerptLen {
		return s
	}
	return s[:maxExcerptLen]
}

// injectionRules covers attempts to steer or abuse the downstream
// extraction model: instruction overrides, role redefinition, data
// exfiltration, executable payloads, and encoding obfuscation.
var injectionRules = []Rule{
	{
		Pattern:     regexp.MustCompile(`(?i)ignore\s+(?:all\s+|previous\s+|your\s+)+instructions`),
		Severity:    claim.SeverityHigh,
		Description: "Instruction override attempt",
	},
	{
		Pattern:     regexp.MustCompile(`(?i)disregard\s+(?:\S+\s+){0,3}(?:programming|instructions)`),
		Severity:    claim.SeverityHigh,
		Description: "Instruction override attempt",
	},
	{
		Pattern:     regexp.MustCompile(`(?i)system\s+prompt\s*:`),
		Severity:    claim.SeverityHigh,
		Description: "System prompt injection marker",
	},
	{
		Pattern:     regexp.MustCompile(`(?i)you\s+are\s+now\s+a\b`),
		Severity:    claim.SeverityMedium,
		Description: "Role redefinition attempt",
	},
	{
		Pattern:     regexp.MustCompile(`(?i)pretend\s+(?:that\s+)?you\s+are\b`),
		Severity:    claim.SeverityMedium,
		Description: "Role redefinition attempt",
	},
	{
		Pattern:     regexp.MustCompile(`(?i)send\s+(?:me\s+)?all\s+(?:my|your|the)\s+data`),
		Severity:    claim.SeverityHigh,
		Description: "Data exfiltration phrasing",
	},
	{
		Pattern:     regexp.MustCompile(`(?i)forward\s+everything\s+to\b`),
		Severity:    claim.SeverityMedium,
		Description: "Data exfiltration phrasing",
	},
	{
		Pattern:     regexp.MustCompile(`(?i)summarize\s+all\s+(?:my\s+)?emails`),
		Severity:    claim.SeverityMedium,
		Description: "Data exfiltration phrasing",
	},
	{
		Pattern:     regexp.MustCompile(`(?i)<\s*script\b`),
		Severity:    claim.SeverityHigh,
		Description: "Script tag in content",
	},
	{
		Pattern:     regexp.MustCompile(`(?i)javascript\s*:`),
		Severity:    claim.SeverityHigh,
		Description: "JavaScript URI scheme",
	},
	{
		Pattern:     regexp.MustCompile(`\{\{[^}]*\}\}|\$\{[^}]*\}`),
		Severity:    claim.SeverityLow,
		Description: "Template interpolation syntax",
	},
	{
		Pattern:     regexp.MustCompile(`&#x?[0-9a-fA-F]{2,6};`),
		Severity:    claim.SeverityMedium,
		Description: "HTML entity encoding",
	},
	{
		Pattern:     regexp.MustCompile(`(?:%[0-9a-fA-F]{2}){3,}`),
		Severity:    claim.SeverityLow,
		Description: "Percent-encoded payload",
	},
}

// suspiciousRules covers content that hides text, pressures the reader, or
// carries credential-shaped material. External URLs outside the two
// permitted post domains are flagged low.
var suspiciousRules = []Rule{
	{
		Pattern:     regexp.MustCompile("[\u200b\u200c\u200d\u2060\ufeff]"),
		Severity:    claim.SeverityMedium,
		Description: "Zero-width or invisible characters",
	},
	{
		Pattern:     regexp.MustCompile(`(?i)<!--|display\s*:\s*none|visibility\s*:\s*hidden`),
		Severity:    claim.SeverityMedium,
		Description: "Hidden text markers",
	},
	{
		Pattern:     regexp.MustCompile(`https?://[^\s<>"')\]]+`),
		Exclude:     regexp.MustCompile(`(?i)^https?://(?:[\w-]+\.)*(?:twitter\.com|x\.com)(?:/|$)`),
		Severity:    claim.SeverityLow,
		Description: "External URL outside permitted domains",
	},
	{
		Pattern:     regexp.MustCompile(`(?i)\b(?:urgent(?:ly)?|immediately|act\s+now|right\s+now|asap)\b`),
		Severity:    claim.SeverityLow,
		Description: "Urgency language",
	},
	{
		Pattern:     regexp.MustCompile(`(?i)\b(?:don'?t\s+tell\s+anyone|keep\s+(?:this\s+)?(?:a\s+)?secret|just\s+between\s+us)\b`),
		Severity:    claim.SeverityMedium,
		Description: "Secrecy language",
	},
	{
		Pattern:     regexp.MustCompile(`\bsk-[A-Za-z0-9]{16,}\b`),
		Severity:    claim.SeverityHigh,
		Description: "API-key-shaped token",
	},
	{
		Pattern:     regexp.MustCompile(`(?i)password\s*[:=]\s*\S+`),
		Severity:    claim.SeverityHigh,
		Description: "Credential-shaped substring",
	},
}
