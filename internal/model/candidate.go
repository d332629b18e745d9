package model

import "time"

// RiskPlan is the derived stop-loss/take-profit/position-size/reward tuple
// for a scored candidate. Prices share the unit of the snapshot price.
type RiskPlan struct {
	StopLoss        float64 `json:"stop_loss"`
	TakeProfit      float64 `json:"take_profit"`
	PositionSizePct float64 `json:"position_size"`
	RiskReward      float64 `json:"risk_reward"`
}

// ScoredCandidate is a snapshot that survived every filter predicate,
// decorated with its indicator set, composite score and risk plan. It is the
// terminal artifact of the pipeline.
type ScoredCandidate struct {
	Snapshot   AssetSnapshot
	Indicators IndicatorSet
	AIScore    float64
	Risk       RiskPlan
}

// ScanRecord is the flat, serialization-ready view of a scored candidate.
// Field names follow the public result schema.
type ScanRecord struct {
	ID             string   `json:"id"`
	Symbol         string   `json:"symbol"`
	Name           string   `json:"name"`
	Image          string   `json:"image"`
	Price          float64  `json:"price"`
	Change24h      float64  `json:"change_24h"`
	Volume         float64  `json:"volume"`
	MarketCap      float64  `json:"market_cap"`
	AIScore        float64  `json:"ai_score"`
	RSI            int      `json:"rsi"`
	RVol           float64  `json:"rvol"`
	EMAAlignment   bool     `json:"ema_alignment"`
	VWAPProximity  float64  `json:"vwap_proximity"`
	NewsSentiment  float64  `json:"news_sentiment"`
	Mentions       int      `json:"twitter_mentions"`
	Timestamp      string   `json:"timestamp"`
	TradingViewURL string   `json:"tradingview_url"`
	NewsURL        string   `json:"news_url"`
	Risk           RiskPlan `json:"risk"`
}

// ScanResult is the output of one completed scan cycle.
type ScanResult struct {
	ScanID    string       `json:"scan_id"`
	Timestamp time.Time    `json:"timestamp"`
	Records   []ScanRecord `json:"results"`
}
