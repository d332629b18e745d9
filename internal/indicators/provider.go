package indicators

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/coinsift/coinsift/internal/model"
)

// Provider supplies one IndicatorSet per input snapshot, in input order. A
// provider must never drop or reorder snapshots; signals it cannot compute are
// left incomplete so the filter stage disqualifies the asset.
type Provider interface {
	Annotate(ctx context.Context, snapshots []model.AssetSnapshot) []model.IndicatorSet
}

// Synthetic generates indicator values within fixed ranges. It stands in for
// a real signal source: RSI in [50,70], relative volume in [2,5], vwap
// proximity in [-2,2], mentions in [10,100], sentiment in [0.6,1.0] and EMA
// alignment true with probability 0.7.
type Synthetic struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSynthetic creates a synthetic provider. A zero seed rotates with the
// wall clock; any other seed makes generation reproducible.
func NewSynthetic(seed int64) *Synthetic {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Synthetic{rng: rand.New(rand.NewSource(seed))}
}

// Annotate attaches a fully populated IndicatorSet to every snapshot.
func (p *Synthetic) Annotate(_ context.Context, snapshots []model.AssetSnapshot) []model.IndicatorSet {
	p.mu.Lock()
	defer p.mu.Unlock()

	sets := make([]model.IndicatorSet, len(snapshots))
	for i := range snapshots {
		sets[i] = model.IndicatorSet{
			RSI:            50 + p.rng.Intn(21),
			RelativeVolume: roundTo(2+p.rng.Float64()*3, 1),
			EMAAligned:     p.rng.Float64() > 0.3,
			VWAPProximity:  roundTo(-2+p.rng.Float64()*4, 2),
			SocialMentions: 10 + p.rng.Intn(91),
			Sentiment:      roundTo(0.6+p.rng.Float64()*0.4, 2),
		}
	}
	return sets
}

func roundTo(v float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(v*pow) / pow
}
