// Package notify delivers out-of-band notices about blocked or
// suspicious claims to configured sinks without blocking the pipeline.
package notify

import (
	"context"
	"time"

	"github.com/edgeguard-ai/edgeguard/internal/claim"
)

// Kind classifies a notice.
type Kind string

const (
	KindBlocked    Kind = "claim_blocked"
	KindSuspicious Kind = "claim_suspicious"
)

// Notice is the payload delivered to sinks when a claim trips security
// rules.
type Notice struct {
	Kind      Kind                 `json:"kind"`
	ClaimID   string               `json:"claim_id"`
	SourceID  string               `json:"source_id,omitempty"`
	Flags     []claim.SecurityFlag `json:"flags,omitempty"`
	Summary   string               `json:"summary,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}

// Sink consumes notices (webhook, log, etc.).
type Sink interface {
	Name() string
	Deliver(context.Context, *Notice) error
	Close(context.Context) error
}
