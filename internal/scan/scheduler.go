package scan

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coinsift/coinsift/internal/model"
)

// SinkFunc receives every completed scan result, successful or empty.
// Sinks own persistence; the pipeline only returns the in-memory sequence.
type SinkFunc func(ctx context.Context, result *model.ScanResult)

// RunPeriodic runs one scan immediately and then one per interval until the
// context is cancelled. Failed cycles are logged and do not stop the loop.
func RunPeriodic(ctx context.Context, o *Orchestrator, interval time.Duration, sink SinkFunc) error {
	runOnce := func() {
		result, err := o.Run(ctx)
		if err != nil {
			log.Error().Err(err).Msg("scheduled scan failed")
			return
		}
		if sink != nil {
			sink(ctx, result)
		}
	}

	runOnce()
	if interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			runOnce()
		}
	}
}
