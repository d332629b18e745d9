package scan

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinsift/coinsift/internal/config"
	"github.com/coinsift/coinsift/internal/filter"
	"github.com/coinsift/coinsift/internal/market"
	"github.com/coinsift/coinsift/internal/metrics"
	"github.com/coinsift/coinsift/internal/model"
	"github.com/coinsift/coinsift/internal/risk"
	"github.com/coinsift/coinsift/internal/scan/progress"
	"github.com/coinsift/coinsift/internal/scoring"
)

type stubFetcher struct {
	snapshots []model.AssetSnapshot
	err       error
}

func (f *stubFetcher) Fetch(context.Context) ([]model.AssetSnapshot, error) {
	return f.snapshots, f.err
}

// stubProvider returns a fixed indicator set per asset ID.
type stubProvider struct {
	sets map[string]model.IndicatorSet
}

func (p *stubProvider) Annotate(_ context.Context, snapshots []model.AssetSnapshot) []model.IndicatorSet {
	out := make([]model.IndicatorSet, len(snapshots))
	for i, s := range snapshots {
		out[i] = p.sets[s.ID]
	}
	return out
}

func goodIndicators() model.IndicatorSet {
	return model.IndicatorSet{
		RSI:            60,
		RelativeVolume: 3,
		EMAAligned:     true,
		VWAPProximity:  1,
		SocialMentions: 50,
		Sentiment:      0.8,
	}
}

func newTestOrchestrator(fetcher Fetcher, provider *stubProvider, bus *progress.Bus) *Orchestrator {
	cfg := config.Default()
	cfg.Scoring.Seed = 42
	return New(fetcher, provider, scoring.NewEngine(cfg.Scoring),
		risk.NewAssessor(cfg.Risk), filter.FromConfig(cfg.Criteria), cfg.Output,
		metrics.NewRegistry(), bus)
}

func TestRunEndToEnd(t *testing.T) {
	// Only "solana" satisfies all ten predicates: "dogecoin" fails the
	// coarse volume threshold, "cardano" fails on sentiment.
	fetcher := &stubFetcher{snapshots: []model.AssetSnapshot{
		{ID: "solana", Symbol: "SOL", Name: "Solana", ImageURL: "https://img/sol.png",
			CurrentPrice: 5, TotalVolume: 20_000_000, MarketCap: 100_000_000, PriceChangePct24h: 10},
		{ID: "dogecoin", Symbol: "DOGE", Name: "Dogecoin",
			CurrentPrice: 0.1, TotalVolume: 1_000_000, MarketCap: 50_000_000, PriceChangePct24h: 5},
		{ID: "cardano", Symbol: "ADA", Name: "Cardano",
			CurrentPrice: 0.5, TotalVolume: 30_000_000, MarketCap: 200_000_000, PriceChangePct24h: 4},
	}}

	badSentiment := goodIndicators()
	badSentiment.Sentiment = 0.2
	provider := &stubProvider{sets: map[string]model.IndicatorSet{
		"solana":  goodIndicators(),
		"cardano": badSentiment,
	}}

	orch := newTestOrchestrator(fetcher, provider, nil)
	result, err := orch.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Len(t, result.Records, 1)

	rec := result.Records[0]
	assert.Equal(t, "solana", rec.ID)
	assert.Equal(t, "SOL", rec.Symbol)
	assert.GreaterOrEqual(t, rec.AIScore, 1.0)
	assert.LessOrEqual(t, rec.AIScore, 10.0)
	assert.Greater(t, rec.Risk.TakeProfit, rec.Price)
	assert.Less(t, rec.Risk.StopLoss, rec.Price)
	assert.Equal(t, "https://www.tradingview.com/chart/?symbol=SOLUSD", rec.TradingViewURL)
	assert.Equal(t, "https://www.coingecko.com/en/coins/solana/news", rec.NewsURL)
	assert.Equal(t, "https://img/sol.png", rec.Image)
	assert.NotEmpty(t, rec.Timestamp)

	assert.Equal(t, StateDone, orch.State())
	assert.Equal(t, result, orch.LastResult())
	assert.NotEmpty(t, result.ScanID)
}

func TestRunFetchFailureTransitionsToFailed(t *testing.T) {
	fetchErr := &market.FetchError{Attempts: 3, Err: errors.New("connection refused")}
	orch := newTestOrchestrator(&stubFetcher{err: fetchErr}, &stubProvider{}, nil)

	result, err := orch.Run(context.Background())
	require.Error(t, err)

	var asFetch *market.FetchError
	assert.ErrorAs(t, err, &asFetch)
	assert.Equal(t, StateFailed, orch.State())

	// A failed scan yields an explicit empty result, distinguishable from
	// success by the returned error.
	require.NotNil(t, result)
	assert.Empty(t, result.Records)
	assert.NotEmpty(t, result.ScanID)
}

func TestRunEmptySnapshotYieldsEmptyResult(t *testing.T) {
	orch := newTestOrchestrator(&stubFetcher{}, &stubProvider{}, nil)

	result, err := orch.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Records)
	assert.Equal(t, StateDone, orch.State())
}

func TestRunNoCandidatesIsNotAnError(t *testing.T) {
	fetcher := &stubFetcher{snapshots: []model.AssetSnapshot{
		{ID: "bitcoin", Symbol: "BTC", CurrentPrice: 65000, TotalVolume: 3e10,
			MarketCap: 1.2e12, PriceChangePct24h: 1},
	}}
	orch := newTestOrchestrator(fetcher, &stubProvider{}, nil)

	result, err := orch.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Records)
	assert.Equal(t, StateDone, orch.State())
}

func TestRunRanksByScoreDescending(t *testing.T) {
	fetcher := &stubFetcher{snapshots: []model.AssetSnapshot{
		{ID: "a", Symbol: "AAA", CurrentPrice: 5, TotalVolume: 20_000_000,
			MarketCap: 100_000_000, PriceChangePct24h: 3},
		{ID: "b", Symbol: "BBB", CurrentPrice: 6, TotalVolume: 900_000_000,
			MarketCap: 4_000_000_000, PriceChangePct24h: 19},
		{ID: "c", Symbol: "CCC", CurrentPrice: 7, TotalVolume: 50_000_000,
			MarketCap: 500_000_000, PriceChangePct24h: 11},
	}}
	provider := &stubProvider{sets: map[string]model.IndicatorSet{
		"a": goodIndicators(), "b": goodIndicators(), "c": goodIndicators(),
	}}

	orch := newTestOrchestrator(fetcher, provider, nil)
	result, err := orch.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Records, 3)

	for i := 1; i < len(result.Records); i++ {
		assert.GreaterOrEqual(t, result.Records[i-1].AIScore, result.Records[i].AIScore)
	}
}

func TestRunEmitsProgressInPipelineOrder(t *testing.T) {
	bus := progress.NewBus()
	events, cancel := bus.Subscribe()
	defer cancel()

	fetcher := &stubFetcher{snapshots: []model.AssetSnapshot{
		{ID: "solana", Symbol: "SOL", CurrentPrice: 5, TotalVolume: 20_000_000,
			MarketCap: 100_000_000, PriceChangePct24h: 10},
	}}
	provider := &stubProvider{sets: map[string]model.IndicatorSet{"solana": goodIndicators()}}

	orch := newTestOrchestrator(fetcher, provider, bus)
	_, err := orch.Run(context.Background())
	require.NoError(t, err)

	want := []string{"FETCHING", "FILTERING", "SCORING", "ASSEMBLING", "DONE"}
	for _, stage := range want {
		ev := <-events
		assert.Equal(t, stage, ev.Stage)
		assert.NotEmpty(t, ev.ScanID)
	}
}
