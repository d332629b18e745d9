package scan

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/coinsift/coinsift/internal/config"
	"github.com/coinsift/coinsift/internal/filter"
	"github.com/coinsift/coinsift/internal/indicators"
	"github.com/coinsift/coinsift/internal/metrics"
	"github.com/coinsift/coinsift/internal/model"
	"github.com/coinsift/coinsift/internal/risk"
	"github.com/coinsift/coinsift/internal/scan/progress"
	"github.com/coinsift/coinsift/internal/scoring"
)

// State is the orchestrator's position in the scan cycle.
type State string

const (
	StateIdle       State = "IDLE"
	StateFetching   State = "FETCHING"
	StateFiltering  State = "FILTERING"
	StateScoring    State = "SCORING"
	StateAssembling State = "ASSEMBLING"
	StateDone       State = "DONE"
	StateFailed     State = "FAILED"
)

const placeholderImageURL = "https://via.placeholder.com/64"

// Fetcher abstracts the market-data client.
type Fetcher interface {
	Fetch(ctx context.Context) ([]model.AssetSnapshot, error)
}

// Orchestrator composes fetch, annotation, filtering, scoring and risk
// derivation into one scan cycle. FAILED is reachable from FETCHING only;
// every later stage propagates an empty result instead of erroring.
type Orchestrator struct {
	fetcher  Fetcher
	provider indicators.Provider
	scorer   *scoring.Engine
	assessor *risk.Assessor
	criteria filter.Criteria
	output   config.OutputConfig
	metrics  *metrics.Registry
	bus      *progress.Bus

	mu    sync.RWMutex
	state State
	last  *model.ScanResult
}

// New wires an orchestrator from its stages. bus may be nil when nothing
// consumes progress events; m may be nil to use the process-wide registry.
func New(fetcher Fetcher, provider indicators.Provider, scorer *scoring.Engine,
	assessor *risk.Assessor, criteria filter.Criteria, output config.OutputConfig,
	m *metrics.Registry, bus *progress.Bus) *Orchestrator {
	if m == nil {
		m = metrics.Default()
	}
	return &Orchestrator{
		fetcher:  fetcher,
		provider: provider,
		scorer:   scorer,
		assessor: assessor,
		criteria: criteria,
		output:   output,
		metrics:  m,
		bus:      bus,
		state:    StateIdle,
	}
}

// State returns the current pipeline state.
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// LastResult returns the most recent completed result, if any.
func (o *Orchestrator) LastResult() *model.ScanResult {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.last
}

// Run executes one scan cycle. A fetch failure returns an explicit empty
// result together with the fatal error, distinguishable from a successful
// scan that found nothing.
func (o *Orchestrator) Run(ctx context.Context) (*model.ScanResult, error) {
	started := time.Now()
	scanID := uuid.New().String()

	o.metrics.ActiveScans.Inc()
	defer o.metrics.ActiveScans.Dec()

	o.transition(scanID, StateFetching, 0, "")
	snapshots, err := o.fetcher.Fetch(ctx)
	if err != nil {
		o.transition(scanID, StateFailed, 0, err.Error())
		o.metrics.ObserveScan("failed", 0, time.Since(started))
		log.Error().Err(err).Str("scan_id", scanID).Msg("scan aborted: fetch failed")
		return o.finish(&model.ScanResult{
			ScanID:    scanID,
			Timestamp: time.Now().UTC(),
			Records:   []model.ScanRecord{},
		}), err
	}

	o.transition(scanID, StateFiltering, len(snapshots), "")
	coarse := filter.ApplyCoarse(snapshots, o.criteria)

	annotated := make([]filter.Annotated, 0, len(coarse))
	if len(coarse) > 0 {
		sets := o.provider.Annotate(ctx, coarse)
		for i, s := range coarse {
			annotated = append(annotated, filter.Annotated{Snapshot: s, Indicators: sets[i]})
		}
	}
	candidates := filter.ApplyIndicators(annotated, o.criteria)
	log.Info().Str("scan_id", scanID).
		Int("fetched", len(snapshots)).Int("coarse", len(coarse)).Int("candidates", len(candidates)).
		Msg("filter stages applied")

	o.transition(scanID, StateScoring, len(candidates), "")
	scored := o.scorer.Score(candidates)
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].AIScore > scored[j].AIScore
	})

	o.transition(scanID, StateAssembling, len(scored), "")
	timestamp := time.Now().UTC()
	records := make([]model.ScanRecord, 0, len(scored))
	for _, cand := range scored {
		cand.Risk = o.assessor.Assess(cand.Snapshot.CurrentPrice, cand.AIScore)
		records = append(records, o.assemble(cand, timestamp))
	}

	result := &model.ScanResult{
		ScanID:    scanID,
		Timestamp: timestamp,
		Records:   records,
	}

	o.transition(scanID, StateDone, len(records), "")
	o.metrics.ObserveScan("done", len(records), time.Since(started))
	log.Info().Str("scan_id", scanID).Int("candidates", len(records)).
		Dur("elapsed", time.Since(started)).Msg("scan completed")
	return o.finish(result), nil
}

// assemble flattens one scored candidate into its serialization-ready record,
// decorated with derived external links.
func (o *Orchestrator) assemble(c model.ScoredCandidate, ts time.Time) model.ScanRecord {
	s := c.Snapshot
	return model.ScanRecord{
		ID:             s.ID,
		Symbol:         s.Symbol,
		Name:           s.Name,
		Image:          validImageURL(s.ImageURL),
		Price:          o.roundPrice(s.CurrentPrice),
		Change24h:      round2(s.PriceChangePct24h),
		Volume:         round2(s.TotalVolume),
		MarketCap:      round2(s.MarketCap),
		AIScore:        c.AIScore,
		RSI:            c.Indicators.RSI,
		RVol:           c.Indicators.RelativeVolume,
		EMAAlignment:   c.Indicators.EMAAligned,
		VWAPProximity:  c.Indicators.VWAPProximity,
		NewsSentiment:  c.Indicators.Sentiment,
		Mentions:       c.Indicators.SocialMentions,
		Timestamp:      ts.Format(time.RFC3339),
		TradingViewURL: fmt.Sprintf("https://www.tradingview.com/chart/?symbol=%sUSD", s.Symbol),
		NewsURL:        fmt.Sprintf("https://www.coingecko.com/en/coins/%s/news", s.ID),
		Risk: model.RiskPlan{
			StopLoss:        o.roundPrice(c.Risk.StopLoss),
			TakeProfit:      o.roundPrice(c.Risk.TakeProfit),
			PositionSizePct: c.Risk.PositionSizePct,
			RiskReward:      c.Risk.RiskReward,
		},
	}
}

// roundPrice applies the configured precision: small prices keep more
// decimals than large ones.
func (o *Orchestrator) roundPrice(v float64) float64 {
	decimals := o.output.PriceDecimals
	if v < o.output.SmallPriceThreshold {
		decimals = o.output.SmallPriceDecimals
	}
	pow := math.Pow(10, float64(decimals))
	return math.Round(v*pow) / pow
}

func (o *Orchestrator) transition(scanID string, next State, count int, errMsg string) {
	o.mu.Lock()
	o.state = next
	o.mu.Unlock()

	if o.bus != nil {
		status := "progress"
		switch next {
		case StateDone:
			status = "success"
		case StateFailed:
			status = "error"
		}
		o.bus.Publish(progress.Event{
			ScanID: scanID,
			Stage:  string(next),
			Status: status,
			Count:  count,
			Error:  errMsg,
		})
	}
}

func (o *Orchestrator) finish(result *model.ScanResult) *model.ScanResult {
	o.mu.Lock()
	o.last = result
	o.mu.Unlock()
	return result
}

func validImageURL(raw string) string {
	if raw == "" {
		return placeholderImageURL
	}
	if strings.HasPrefix(raw, "http") {
		return raw
	}
	return "https://www.coingecko.com/" + raw
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
