package filter

import "github.com/coinsift/coinsift/internal/config"

// Criteria is the immutable battery of thresholds applied during one scan.
// It is copied from configuration at scan start and never mutated mid-scan.
type Criteria struct {
	PriceMin     float64
	PriceMax     float64
	VolumeMin    float64
	ChangeMin    float64
	ChangeMax    float64
	MarketCapMin float64
	MarketCapMax float64
	RSIMin       int
	RSIMax       int
	RVolMin      float64
	EMARequired  bool
	VWAPMaxAbs   float64
	MentionsMin  int
	SentimentMin float64
}

// FromConfig snapshots the configured thresholds into a Criteria value.
func FromConfig(cfg config.CriteriaConfig) Criteria {
	return Criteria{
		PriceMin:     cfg.PriceMin,
		PriceMax:     cfg.PriceMax,
		VolumeMin:    cfg.VolumeMin,
		ChangeMin:    cfg.ChangeMin,
		ChangeMax:    cfg.ChangeMax,
		MarketCapMin: cfg.MarketCapMin,
		MarketCapMax: cfg.MarketCapMax,
		RSIMin:       cfg.RSIMin,
		RSIMax:       cfg.RSIMax,
		RVolMin:      cfg.RVolMin,
		EMARequired:  cfg.EMARequired,
		VWAPMaxAbs:   cfg.VWAPMaxAbs,
		MentionsMin:  cfg.MentionsMin,
		SentimentMin: cfg.SentimentMin,
	}
}
