package risk

import (
	"math"

	"github.com/coinsift/coinsift/internal/config"
	"github.com/coinsift/coinsift/internal/model"
)

// Assessor derives a risk plan from price and composite score. It is a pure
// function of its inputs: a higher score yields a tighter stop-loss, a higher
// take-profit target and a larger position size.
type Assessor struct {
	cfg config.RiskConfig
}

// NewAssessor creates an assessor with the configured constants.
func NewAssessor(cfg config.RiskConfig) *Assessor {
	return &Assessor{cfg: cfg}
}

// Assess derives the risk plan for one candidate. The reward ratio is
// floor-clamped so it stays defined when the stop approaches the price.
func (a *Assessor) Assess(price, score float64) model.RiskPlan {
	stopLoss := price * (1 - (a.cfg.BaseStopLoss + (10-score)/100))
	takeProfit := price * (1 + (a.cfg.BaseTakeProfit + score/100))
	positionSize := math.Min(a.cfg.PositionSizeCap, score*a.cfg.SizeMultiplier)

	reward := a.cfg.RewardFloor
	if risk := price - stopLoss; risk > 0 {
		reward = math.Max(a.cfg.RewardFloor, (takeProfit-price)/risk)
	}

	return model.RiskPlan{
		StopLoss:        stopLoss,
		TakeProfit:      takeProfit,
		PositionSizePct: positionSize,
		RiskReward:      math.Round(reward*100) / 100,
	}
}
