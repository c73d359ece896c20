// Package metrics exposes Prometheus counters for the validation
// pipeline and correlation engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ClaimsReceived = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "edgeguard", Subsystem: "pipeline", Name: "claims_received_total", Help: "Claims submitted for validation."},
	)
	ClaimsBlocked = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "edgeguard", Subsystem: "pipeline", Name: "claims_blocked_total", Help: "Claims blocked by the security scan."},
	)
	SecurityFlags = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "edgeguard", Subsystem: "scanner", Name: "security_flags_total", Help: "Security flags raised, by type and severity."},
		[]string{"type", "severity"},
	)
	FetchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "edgeguard", Subsystem: "fetcher", Name: "fetch_failures_total", Help: "Content fetch failures, by reason."},
		[]string{"reason"},
	)
	ExtractionFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "edgeguard", Subsystem: "pipeline", Name: "extraction_failures_total", Help: "Extraction calls that returned an error or malformed output."},
	)
	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "edgeguard", Subsystem: "cache", Name: "extraction_cache_total", Help: "Extraction cache lookups, by outcome."},
		[]string{"outcome"},
	)
	CorrelationRuns = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "edgeguard", Subsystem: "correlation", Name: "analyses_total", Help: "Correlation analyses performed."},
	)
)

func init() {
	// Safe register; ignore duplicate registration across test binaries
	_ = prometheus.Register(ClaimsReceived)
	_ = prometheus.Register(ClaimsBlocked)
	_ = prometheus.Register(SecurityFlags)
	_ = prometheus.Register(FetchFailures)
	_ = prometheus.Register(ExtractionFailures)
	_ = prometheus.Register(CacheHits)
	_ = prometheus.Register(CorrelationRuns)
}

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
