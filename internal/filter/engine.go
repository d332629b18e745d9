package filter

import (
	"math"

	"github.com/coinsift/coinsift/internal/model"
)

// Annotated pairs a snapshot with its indicator set between the annotation
// and scoring stages.
type Annotated struct {
	Snapshot   model.AssetSnapshot
	Indicators model.IndicatorSet
}

// ApplyCoarse evaluates the snapshot-level predicates (price range, minimum
// volume, change range, market-cap range) before any indicator synthesis, so
// assets that cannot pass are never annotated. The result is an
// order-preserving subset. Every boundary is inclusive.
func ApplyCoarse(snapshots []model.AssetSnapshot, c Criteria) []model.AssetSnapshot {
	if len(snapshots) == 0 {
		return nil
	}

	out := make([]model.AssetSnapshot, 0, len(snapshots))
	for _, s := range snapshots {
		if !finite(s.CurrentPrice, s.TotalVolume, s.MarketCap, s.PriceChangePct24h) {
			continue
		}
		if s.CurrentPrice < c.PriceMin || s.CurrentPrice > c.PriceMax {
			continue
		}
		if s.TotalVolume < c.VolumeMin {
			continue
		}
		if s.PriceChangePct24h < c.ChangeMin || s.PriceChangePct24h > c.ChangeMax {
			continue
		}
		if s.MarketCap < c.MarketCapMin || s.MarketCap > c.MarketCapMax {
			continue
		}
		out = append(out, s)
	}
	return out
}

// ApplyIndicators evaluates the indicator-level predicates over annotated
// assets. Incomplete indicator sets disqualify the asset rather than passing
// silently. The result is an order-preserving subset.
func ApplyIndicators(assets []Annotated, c Criteria) []Annotated {
	if len(assets) == 0 {
		return nil
	}

	out := make([]Annotated, 0, len(assets))
	for _, a := range assets {
		ind := a.Indicators
		if !ind.Complete() {
			continue
		}
		if ind.RSI < c.RSIMin || ind.RSI > c.RSIMax {
			continue
		}
		if ind.RelativeVolume < c.RVolMin {
			continue
		}
		if ind.EMAAligned != c.EMARequired {
			continue
		}
		if math.Abs(ind.VWAPProximity) > c.VWAPMaxAbs {
			continue
		}
		if ind.SocialMentions < c.MentionsMin {
			continue
		}
		if ind.Sentiment < c.SentimentMin {
			continue
		}
		out = append(out, a)
	}
	return out
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
