package model

import "math"

// IndicatorSet holds the per-asset technical signals attached to a snapshot.
// Every candidate entering the scoring stage must carry a complete set;
// incomplete sets are filtered out, never scored.
type IndicatorSet struct {
	RSI            int     `json:"rsi"`
	RelativeVolume float64 `json:"rvol"`
	EMAAligned     bool    `json:"ema_alignment"`
	VWAPProximity  float64 `json:"vwap_proximity"`
	SocialMentions int     `json:"twitter_mentions"`
	Sentiment      float64 `json:"news_sentiment"`
}

// Complete reports whether every numeric signal is populated and finite.
func (s IndicatorSet) Complete() bool {
	if s.RSI < 0 || s.RSI > 100 {
		return false
	}
	if s.SocialMentions < 0 {
		return false
	}
	for _, v := range []float64{s.RelativeVolume, s.VWAPProximity, s.Sentiment} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return s.RelativeVolume >= 0
}
