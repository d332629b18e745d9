package scoring

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/coinsift/coinsift/internal/config"
	"github.com/coinsift/coinsift/internal/filter"
	"github.com/coinsift/coinsift/internal/model"
)

// ScoreMin and ScoreMax bound the composite score.
const (
	ScoreMin = 1.0
	ScoreMax = 10.0
)

// Engine computes the bounded composite attractiveness score. Five normalized
// features are combined with fixed weights plus a declared Gaussian jitter
// term; the jitter exists to separate near-identical assets, not to encode
// real uncertainty.
type Engine struct {
	cfg config.ScoringConfig
	mu  sync.Mutex
	rng *rand.Rand
}

// NewEngine creates a scoring engine. A zero configured seed rotates with the
// wall clock.
func NewEngine(cfg config.ScoringConfig) *Engine {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Engine{cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

// Score assigns a composite score in [1,10] to every candidate. Empty input
// yields an empty sequence, never an error.
func (e *Engine) Score(candidates []filter.Annotated) []model.ScoredCandidate {
	if len(candidates) == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]model.ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, model.ScoredCandidate{
			Snapshot:   c.Snapshot,
			Indicators: c.Indicators,
			AIScore:    e.composite(c),
		})
	}
	return out
}

func (e *Engine) composite(c filter.Annotated) float64 {
	momentum := c.Snapshot.PriceChangePct24h / 100
	liquidity := safeLog10(c.Snapshot.TotalVolume) / 10
	size := safeLog10(c.Snapshot.MarketCap) / 12
	strength := float64(c.Indicators.RSI) / 100
	sentiment := c.Indicators.Sentiment

	raw := momentum*e.cfg.WeightMomentum +
		liquidity*e.cfg.WeightLiquidity +
		size*e.cfg.WeightSize +
		strength*e.cfg.WeightStrength +
		sentiment*e.cfg.WeightSentiment +
		e.rng.NormFloat64()*e.cfg.JitterSpread + e.cfg.JitterMean

	return math.Round(clamp(raw, ScoreMin, ScoreMax)*10) / 10
}

func safeLog10(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Log10(v)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
