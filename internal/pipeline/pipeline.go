// Package pipeline runs a submitted claim through content resolution,
// security scanning, sanitization and structured extraction. Every run
// terminates in a well-formed parsed claim; no error propagates to the
// caller.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/edgeguard-ai/edgeguard/internal/audit"
	"github.com/edgeguard-ai/edgeguard/internal/cache"
	"github.com/edgeguard-ai/edgeguard/internal/claim"
	"github.com/edgeguard-ai/edgeguard/internal/extractor"
	"github.com/edgeguard-ai/edgeguard/internal/fetcher"
	"github.com/edgeguard-ai/edgeguard/internal/metrics"
	"github.com/edgeguard-ai/edgeguard/internal/notify"
	"github.com/edgeguard-ai/edgeguard/internal/redact"
)

const (
	blockedSummary       = "Content blocked due to security concerns"
	extractFailedSummary = "Failed to parse claim"
)

// Scanner is the security collaborator boundary.
type Scanner interface {
	Scan(text string) []claim.SecurityFlag
	ShouldBlock(flags []claim.SecurityFlag) bool
	Sanitize(text string) string
}

// Params collects pipeline collaborators. Scanner, Extractor and Audit
// are required; the rest may be nil.
type Params struct {
	Scanner   Scanner
	Fetcher   fetcher.Fetcher
	Extractor extractor.Extractor
	Audit     audit.Log
	Cache     *cache.ExtractionCache
	Notifier  *notify.Emitter
}

type Pipeline struct {
	scanner   Scanner
	fetcher   fetcher.Fetcher
	extractor extractor.Extractor
	audit     audit.Log
	cache     *cache.ExtractionCache
	notifier  *notify.Emitter
}

func New(p Params) *Pipeline {
	return &Pipeline{
		scanner:   p.Scanner,
		fetcher:   p.Fetcher,
		extractor: p.Extractor,
		audit:     p.Audit,
		cache:     p.Cache,
		notifier:  p.Notifier,
	}
}

// Validate runs one claim to a terminal result. It never returns an
// error: fetch failures degrade to synthetic content, blocks and
// extraction failures produce zero-confidence results.
func (p *Pipeline) Validate(ctx context.Context, in claim.Input) claim.Parsed {
	id := uuid.NewString()
	metrics.ClaimsReceived.Inc()
	p.record(audit.NewClaimReceived(id, in.SourceID))

	content := p.resolveContent(ctx, id, in)

	flags := p.scanner.Scan(content)
	for _, f := range flags {
		metrics.SecurityFlags.WithLabelValues(string(f.Type), string(f.Severity)).Inc()
	}
	if p.scanner.ShouldBlock(flags) {
		metrics.ClaimsBlocked.Inc()
		p.record(audit.NewSecurityFlag(id, in.SourceID, flags))
		p.record(audit.NewValidationComplete(id, in.SourceID, "blocked"))
		p.notify(notify.KindBlocked, id, in.SourceID, flags, blockedSummary)
		return blockedResult(id, in, flags)
	}

	sanitized := p.scanner.Sanitize(content)
	res, err := p.extract(ctx, sanitized)
	if err != nil {
		metrics.ExtractionFailures.Inc()
		p.record(audit.NewError(id, in.SourceID, err))
		p.record(audit.NewValidationComplete(id, in.SourceID, "failed"))
		return failedResult(id, in, flags, err)
	}

	p.record(audit.NewClaimParsed(id, in.SourceID, res.ParseConfidence, flags))
	p.record(audit.NewValidationComplete(id, in.SourceID, "parsed"))
	if len(flags) > 0 {
		p.notify(notify.KindSuspicious, id, in.SourceID, flags, res.Summary)
	}
	return assembleResult(id, in, flags, res)
}

// resolveContent prefers explicit content, then a URL fetch, then the
// raw source string. A failed fetch yields synthetic placeholder
// content so the rest of the pipeline still runs.
func (p *Pipeline) resolveContent(ctx context.Context, id string, in claim.Input) string {
	if in.Content != "" {
		return in.Content
	}
	if p.fetcher != nil && looksLikeURL(in.Source) {
		content, err := p.fetcher.FetchPost(ctx, in.Source)
		if err == nil {
			return content
		}
		metrics.FetchFailures.WithLabelValues(fetchReason(err)).Inc()
		p.record(audit.NewError(id, in.SourceID, fmt.Errorf("fetch: %w", err)))
		return fmt.Sprintf("[URL: %s] Note: Could not fetch content from this URL. Error: %v", in.Source, err)
	}
	return in.Source
}

func (p *Pipeline) extract(ctx context.Context, sanitized string) (*extractor.Result, error) {
	if cached, ok := p.cache.Get(ctx, sanitized); ok {
		metrics.CacheHits.WithLabelValues("hit").Inc()
		return cached, nil
	}
	metrics.CacheHits.WithLabelValues("miss").Inc()
	res, err := p.extractor.Extract(ctx, sanitized)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("extractor returned no result")
	}
	p.cache.Set(ctx, sanitized, res)
	return res, nil
}

// record appends best-effort. A failing audit write never fails the
// claim.
func (p *Pipeline) record(e audit.Entry) {
	if p.audit == nil {
		return
	}
	if err := p.audit.Append(e); err != nil {
		redact.Logf("pipeline: audit append failed: %v", err)
	}
}

func (p *Pipeline) notify(kind notify.Kind, id, sourceID string, flags []claim.SecurityFlag, summary string) {
	p.notifier.Emit(&notify.Notice{
		Kind:      kind,
		ClaimID:   id,
		SourceID:  sourceID,
		Flags:     flags,
		Summary:   summary,
		Timestamp: time.Now().UTC(),
	})
}

func blockedResult(id string, in claim.Input, flags []claim.SecurityFlag) claim.Parsed {
	descs := make([]string, len(flags))
	for i, f := range flags {
		descs[i] = f.Description
	}
	out := emptyResult(id, in, flags)
	out.Summary = blockedSummary
	out.Warnings = []string{strings.Join(descs, ", ")}
	return out
}

func failedResult(id string, in claim.Input, flags []claim.SecurityFlag, err error) claim.Parsed {
	out := emptyResult(id, in, flags)
	out.Summary = extractFailedSummary
	out.Warnings = []string{err.Error()}
	return out
}

func emptyResult(id string, in claim.Input, flags []claim.SecurityFlag) claim.Parsed {
	return claim.Parsed{
		ID:                id,
		Input:             in,
		ParseConfidence:   0,
		MarketType:        "unknown",
		StrategyType:      "unknown",
		EdgeSource:        "unknown",
		Parameters:        map[string]any{},
		MarketIdentifiers: []string{},
		Warnings:          []string{},
		SecurityFlags:     flags,
	}
}

func assembleResult(id string, in claim.Input, flags []claim.SecurityFlag, res *extractor.Result) claim.Parsed {
	return claim.Parsed{
		ID:                id,
		Input:             in,
		ParseConfidence:   res.ParseConfidence,
		MarketType:        res.MarketType,
		StrategyType:      res.StrategyType,
		EdgeSource:        res.EdgeSource,
		Summary:           res.Summary,
		Parameters:        res.Parameters,
		MarketIdentifiers: res.MarketIdentifiers,
		ClaimedEdge:       res.ClaimedEdge,
		Warnings:          res.Warnings,
		SecurityFlags:     flags,
	}
}

func looksLikeURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func fetchReason(err error) string {
	switch {
	case errors.Is(err, fetcher.ErrNotFound):
		return "not_found"
	case errors.Is(err, fetcher.ErrRateLimited):
		return "rate_limited"
	default:
		return "transport"
	}
}
