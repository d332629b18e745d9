package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndicatorSetComplete(t *testing.T) {
	base := IndicatorSet{
		RSI:            60,
		RelativeVolume: 3,
		EMAAligned:     true,
		VWAPProximity:  1,
		SocialMentions: 50,
		Sentiment:      0.8,
	}
	assert.True(t, base.Complete())

	tests := []struct {
		name   string
		mutate func(*IndicatorSet)
	}{
		{"rsi above 100", func(s *IndicatorSet) { s.RSI = 101 }},
		{"negative rsi", func(s *IndicatorSet) { s.RSI = -1 }},
		{"negative mentions", func(s *IndicatorSet) { s.SocialMentions = -1 }},
		{"negative rvol", func(s *IndicatorSet) { s.RelativeVolume = -0.5 }},
		{"nan rvol", func(s *IndicatorSet) { s.RelativeVolume = math.NaN() }},
		{"infinite vwap", func(s *IndicatorSet) { s.VWAPProximity = math.Inf(1) }},
		{"nan sentiment", func(s *IndicatorSet) { s.Sentiment = math.NaN() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base
			tt.mutate(&s)
			assert.False(t, s.Complete())
		})
	}
}

func TestIndicatorSetZeroValueIsComplete(t *testing.T) {
	// A zero set is structurally complete; threshold predicates decide
	// whether it qualifies.
	assert.True(t, IndicatorSet{}.Complete())
}
