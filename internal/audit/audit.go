// Package audit records every pipeline decision as an append-only stream of
// newline-delimited JSON entries. Entries are never edited or deleted;
// whole-file rotation is the only mutation.
package audit

import (
	"time"

	"github.com/edgeguard-ai/edgeguard/internal/claim"
)

// EventType classifies an audit entry.
type EventType string

const (
	EventClaimReceived      EventType = "claim_received"
	EventClaimParsed        EventType = "claim_parsed"
	EventSecurityFlag       EventType = "security_flag"
	EventValidationComplete EventType = "validation_complete"
	EventError              EventType = "error"
)

// Entry is one audit record. Timestamp is stamped by the log on append.
type Entry struct {
	Timestamp     time.Time            `json:"timestamp"`
	EventType     EventType            `json:"event_type"`
	ClaimID       string               `json:"claim_id"`
	SourceID      string               `json:"source_id,omitempty"`
	SecurityFlags []claim.SecurityFlag `json:"security_flags,omitempty"`
	Verdict       string               `json:"verdict,omitempty"`
	Metadata      map[string]any       `json:"metadata,omitempty"`
}

// Log accepts audit entries. The file-backed implementation is FileLog;
// tests substitute MemoryLog.
type Log interface {
	Append(Entry) error
}

// Store extends Log with the bounded read-back used by the API surface.
type Store interface {
	Log
	ReadRecent(n int) ([]Entry, error)
	SecurityEventsSince(d time.Duration) ([]Entry, error)
}

// Thin entry constructors for the pipeline's stage transitions.

func NewClaimReceived(claimID, sourceID string) Entry {
	return Entry{EventType: EventClaimReceived, ClaimID: claimID, SourceID: sourceID}
}

func NewClaimParsed(claimID, sourceID string, confidence float64, flags []claim.SecurityFlag) Entry {
	return Entry{
		EventType:     EventClaimParsed,
		ClaimID:       claimID,
		SourceID:      sourceID,
		SecurityFlags: flags,
		Metadata:      map[string]any{"parse_confidence": confidence},
	}
}

func NewSecurityFlag(claimID, sourceID string, flags []claim.SecurityFlag) Entry {
	return Entry{
		EventType:     EventSecurityFlag,
		ClaimID:       claimID,
		SourceID:      sourceID,
		SecurityFlags: flags,
		Verdict:       "blocked",
	}
}

func NewValidationComplete(claimID, sourceID, verdict string) Entry {
	return Entry{EventType: EventValidationComplete, ClaimID: claimID, SourceID: sourceID, Verdict: verdict}
}

func NewError(claimID, sourceID string, err error) Entry {
	return Entry{
		EventType: EventError,
		ClaimID:   claimID,
		SourceID:  sourceID,
		Metadata:  map[string]any{"error": err.Error()},
	}
}
