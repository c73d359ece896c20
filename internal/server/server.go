// Package server exposes the claim validation pipeline and correlation
// engine over HTTP.
package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/edgeguard-ai/edgeguard/internal/allowlist"
	"github.com/edgeguard-ai/edgeguard/internal/audit"
	"github.com/edgeguard-ai/edgeguard/internal/claim"
	"github.com/edgeguard-ai/edgeguard/internal/correlation"
	"github.com/edgeguard-ai/edgeguard/internal/metrics"
	"github.com/edgeguard-ai/edgeguard/internal/pipeline"
	"github.com/edgeguard-ai/edgeguard/internal/stats"
)

// Server wraps the HTTP surface of edgeguard.
type Server struct {
	mux      *http.ServeMux
	pipeline *pipeline.Pipeline
	engine   *correlation.Engine
	store    audit.Store
	tokens   *allowlist.Set
}

// New wires routes over the given collaborators. tokens may be nil or
// empty to disable auth.
func New(p *pipeline.Pipeline, engine *correlation.Engine, store audit.Store, tokens *allowlist.Set) *Server {
	mux := http.NewServeMux()
	s := &Server{
		mux:      mux,
		pipeline: p,
		engine:   engine,
		store:    store,
		tokens:   tokens,
	}

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/claims", s.authed(s.handleClaims))
	mux.HandleFunc("/v1/returns/", s.authed(s.handleStoreReturns))
	mux.HandleFunc("/v1/correlation/analyze", s.authed(s.handleAnalyze))
	mux.HandleFunc("/v1/audit/recent", s.authed(s.handleAuditRecent))
	mux.HandleFunc("/v1/audit/security", s.authed(s.handleAuditSecurity))
	mux.Handle("/metrics", metrics.Handler())

	return s
}

func (s *Server) Start(addr string) error {
	log.Printf("edgeguard running on %s", addr)
	return http.ListenAndServe(addr, s.mux)
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler { return s.mux }

// authed rejects requests whose bearer token is not allowlisted. An
// empty allowlist disables the check.
func (s *Server) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.tokens != nil && !s.tokens.Empty() {
			token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if token == "" || !s.tokens.Contains(token) {
				writeError(w, http.StatusUnauthorized, "invalid or missing bearer token")
				return
			}
		}
		next(w, r)
	}
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintln(w, "ok")
}

type claimRequest struct {
	Source   string `json:"source"`
	Content  string `json:"content"`
	SourceID string `json:"source_id"`
}

func (s *Server) handleClaims(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Source == "" && req.Content == "" {
		writeError(w, http.StatusBadRequest, "source or content is required")
		return
	}

	parsed := s.pipeline.Validate(r.Context(), claim.Input{
		Source:   req.Source,
		Content:  req.Content,
		SourceID: req.SourceID,
	})
	writeJSON(w, http.StatusOK, parsed)
}

type storeReturnsRequest struct {
	StrategyName string    `json:"strategy_name"`
	Returns      []float64 `json:"returns"`
}

func (s *Server) handleStoreReturns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	family := strings.TrimPrefix(r.URL.Path, "/v1/returns/")
	if family == "" || strings.Contains(family, "/") {
		writeError(w, http.StatusBadRequest, "family is required")
		return
	}
	var req storeReturnsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.StrategyName == "" {
		writeError(w, http.StatusBadRequest, "strategy_name is required")
		return
	}
	if err := s.engine.StoreReturns(family, req.StrategyName, req.Returns); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Profile the stored series so callers can eyeball suspicious
	// submissions (fabricated digits, implausible streaks).
	wins, losses := stats.LongestStreak(req.Returns)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "stored",
		"profile": map[string]any{
			"observations":        len(req.Returns),
			"win_rate":            stats.WinRate(req.Returns),
			"longest_win_streak":  wins,
			"longest_loss_streak": losses,
			"p95_return":          stats.Percentile(req.Returns, 95),
			"digit_chi_square":    stats.ChiSquareUniform(req.Returns),
		},
	})
}

type analyzeRequest struct {
	Returns []float64 `json:"returns"`
	Reload  bool      `json:"reload"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Reload {
		s.engine.Reload()
	}
	metrics.CorrelationRuns.Inc()
	writeJSON(w, http.StatusOK, s.engine.Analyze(req.Returns))
}

func (s *Server) handleAuditRecent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	n := 50
	if raw := r.URL.Query().Get("n"); raw != "" {
		if _, err := fmt.Sscanf(raw, "%d", &n); err != nil || n <= 0 || n > 1000 {
			writeError(w, http.StatusBadRequest, "n must be in [1,1000]")
			return
		}
	}
	entries, err := s.store.ReadRecent(n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "audit read failed")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleAuditSecurity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	window := 24 * time.Hour
	if raw := r.URL.Query().Get("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "window must be a positive duration")
			return
		}
		window = d
	}
	entries, err := s.store.SecurityEventsSince(window)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "audit read failed")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
