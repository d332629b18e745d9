package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinsift/coinsift/internal/config"
)

func testAssessor() *Assessor {
	return NewAssessor(config.Default().Risk)
}

func TestAssessBracketsPrice(t *testing.T) {
	a := testAssessor()

	for _, score := range []float64{1, 2.5, 5, 7.3, 10} {
		plan := a.Assess(42.5, score)
		assert.Less(t, plan.StopLoss, 42.5, "score %v", score)
		assert.Greater(t, plan.TakeProfit, 42.5, "score %v", score)
		assert.Greater(t, plan.PositionSizePct, 0.0)
	}
}

func TestAssessMonotonicInScore(t *testing.T) {
	a := testAssessor()
	const price = 10.0

	high := a.Assess(price, 9)
	low := a.Assess(price, 3)

	// Higher score: stop closer to price, take-profit at least as high,
	// larger position.
	assert.Greater(t, high.StopLoss, low.StopLoss)
	assert.Less(t, price-high.StopLoss, price-low.StopLoss)
	assert.GreaterOrEqual(t, high.TakeProfit, low.TakeProfit)
	assert.GreaterOrEqual(t, high.PositionSizePct, low.PositionSizePct)
}

func TestAssessPositionSizeCapped(t *testing.T) {
	a := testAssessor()
	plan := a.Assess(1, 10)
	// 10 * 2 would be 20; the cap holds it at 10.
	assert.Equal(t, 10.0, plan.PositionSizePct)
}

func TestAssessRewardRatioFloored(t *testing.T) {
	cfg := config.Default().Risk
	a := NewAssessor(cfg)

	for _, score := range []float64{1, 5, 10} {
		for _, price := range []float64{0.001, 0.5, 1, 42.5, 99.99} {
			plan := a.Assess(price, score)
			require.GreaterOrEqual(t, plan.RiskReward, cfg.RewardFloor,
				"price %v score %v", price, score)
		}
	}
}

func TestAssessPureFunction(t *testing.T) {
	a := testAssessor()
	first := a.Assess(5, 7.5)
	second := a.Assess(5, 7.5)
	assert.Equal(t, first, second)
}
