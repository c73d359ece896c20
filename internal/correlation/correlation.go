// Package correlation scores a new strategy's return series against
// stored families of historical returns and derives a diversification
// score.
package correlation

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Families tracked as correlation baselines. Each family has its own
// on-disk corpus file in the engine's data directory.
var Families = []string{"btc", "weather"}

const (
	minObservations = 10
	minOverlap      = 5
)

// StrategyReturns is one stored return series.
type StrategyReturns struct {
	StrategyName string    `json:"strategy_name"`
	Returns      []float64 `json:"returns"`
	Family       string    `json:"family"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Result is the outcome of an analysis run. It is recomputed on every
// call and never persisted.
type Result struct {
	BTCCorrelation       float64 `json:"btc_correlation"`
	WeatherCorrelation   float64 `json:"weather_correlation"`
	IsUncorrelated       bool    `json:"is_uncorrelated"`
	DiversificationScore int     `json:"diversification_score"`
	Analysis             string  `json:"analysis"`
}

// Engine holds the in-memory corpus and its backing directory.
type Engine struct {
	dir string

	mu       sync.RWMutex
	families map[string][]StrategyReturns
}

// NewEngine loads both family corpora from dir. A missing or unreadable
// corpus file means an empty family, never an error.
func NewEngine(dir string) *Engine {
	e := &Engine{dir: dir, families: map[string][]StrategyReturns{}}
	e.Reload()
	return e
}

func (e *Engine) corpusPath(family string) string {
	return filepath.Join(e.dir, family+"_returns.json")
}

// Reload re-reads every tracked family from disk, replacing in-memory
// state. Used to pick up out-of-process corpus writes.
func (e *Engine) Reload() {
	loaded := map[string][]StrategyReturns{}
	for _, fam := range Families {
		loaded[fam] = e.loadFamily(fam)
	}
	e.mu.Lock()
	e.families = loaded
	e.mu.Unlock()
}

func (e *Engine) loadFamily(family string) []StrategyReturns {
	raw, err := os.ReadFile(e.corpusPath(family))
	if err != nil {
		return nil
	}
	var series []StrategyReturns
	if err := json.Unmarshal(raw, &series); err != nil {
		return nil
	}
	return series
}

// StoreReturns upserts a named series into a family's corpus, stamping
// the update time, and rewrites the corpus file.
func (e *Engine) StoreReturns(family, strategyName string, returns []float64) error {
	if !knownFamily(family) {
		return fmt.Errorf("unknown family %q", family)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	entry := StrategyReturns{
		StrategyName: strategyName,
		Returns:      returns,
		Family:       family,
		UpdatedAt:    time.Now().UTC(),
	}
	series := e.families[family]
	replaced := false
	for i := range series {
		if series[i].StrategyName == strategyName {
			series[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		series = append(series, entry)
	}
	e.families[family] = series

	raw, err := json.MarshalIndent(series, "", "  ")
	if err != nil {
		return fmt.Errorf("encode corpus: %w", err)
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return fmt.Errorf("corpus dir: %w", err)
	}
	if err := os.WriteFile(e.corpusPath(family), raw, 0o644); err != nil {
		return fmt.Errorf("write corpus: %w", err)
	}
	return nil
}

func knownFamily(family string) bool {
	for _, f := range Families {
		if f == family {
			return true
		}
	}
	return false
}

// Analyze correlates newReturns against every eligible stored series and
// summarizes how diversifying the new strategy is. Short series get a
// neutral result rather than an error.
func (e *Engine) Analyze(newReturns []float64) Result {
	if len(newReturns) < minObservations {
		return Result{
			IsUncorrelated:       true,
			DiversificationScore: 5,
			Analysis: fmt.Sprintf("Insufficient data: need at least %d observations, got %d. Returning neutral diversification score.",
				minObservations, len(newReturns)),
		}
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	avgs := map[string]float64{}
	for _, fam := range Families {
		avgs[fam] = e.familyAverage(fam, newReturns)
	}
	btc := round3(avgs["btc"])
	weather := round3(avgs["weather"])

	uncorrelated := math.Abs(btc) < 0.3 && math.Abs(weather) < 0.3
	meanAbs := (math.Abs(btc) + math.Abs(weather)) / 2
	score := int(math.Round(10 * (1 - meanAbs)))
	if score < 0 {
		score = 0
	}
	if score > 10 {
		score = 10
	}

	return Result{
		BTCCorrelation:       btc,
		WeatherCorrelation:   weather,
		IsUncorrelated:       uncorrelated,
		DiversificationScore: score,
		Analysis:             buildAnalysis(btc, weather, score, uncorrelated),
	}
}

// familyAverage averages the pairwise correlations of newReturns against
// each eligible stored series in the family. Stored series shorter than
// minObservations are excluded; pairs without minOverlap aligned points
// are skipped. An empty family contributes 0.
func (e *Engine) familyAverage(family string, newReturns []float64) float64 {
	var sum float64
	var count int
	for _, s := range e.families[family] {
		if len(s.Returns) < minObservations {
			continue
		}
		n := len(newReturns)
		if len(s.Returns) < n {
			n = len(s.Returns)
		}
		if n < minOverlap {
			continue
		}
		corr := pearson(newReturns[:n], s.Returns[:n])
		if math.IsNaN(corr) {
			continue
		}
		sum += corr
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// pearson computes the Pearson correlation coefficient over two equal
// length slices. Returns NaN when either series has zero variance.
func pearson(x, y []float64) float64 {
	n := len(x)
	sumX, sumY, sumXY, sumX2, sumY2 := 0.0, 0.0, 0.0, 0.0, 0.0
	for i := 0; i < n; i++ {
		sumX += x[i]
		sumY += y[i]
		sumXY += x[i] * y[i]
		sumX2 += x[i] * x[i]
		sumY2 += y[i] * y[i]
	}
	fn := float64(n)
	num := fn*sumXY - sumX*sumY
	den := math.Sqrt(fn*sumX2-sumX*sumX) * math.Sqrt(fn*sumY2-sumY*sumY)
	if den == 0 {
		return math.NaN()
	}
	return num / den
}

func buildAnalysis(btc, weather float64, score int, uncorrelated bool) string {
	verdict := "This strategy adds limited diversification to the portfolio."
	if uncorrelated {
		verdict = "This strategy appears to diversify the portfolio."
	}
	return fmt.Sprintf("BTC family: %s (%.3f). Weather family: %s (%.3f). Diversification score: %d/10. %s",
		describe(btc), btc, describe(weather), weather, score, verdict)
}

func describe(corr float64) string {
	abs := math.Abs(corr)
	switch {
	case abs > 0.7:
		return "highly correlated"
	case abs > 0.3:
		return "moderately correlated"
	default:
		return "uncorrelated"
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
