package scan

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinsift/coinsift/internal/model"
)

func TestRunPeriodicSingleShot(t *testing.T) {
	orch := newTestOrchestrator(&stubFetcher{}, &stubProvider{}, nil)

	var calls int32
	err := RunPeriodic(context.Background(), orch, 0, func(_ context.Context, result *model.ScanResult) {
		atomic.AddInt32(&calls, 1)
		assert.NotNil(t, result)
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRunPeriodicRepeatsUntilCancelled(t *testing.T) {
	orch := newTestOrchestrator(&stubFetcher{}, &stubProvider{}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	var calls int32
	go func() {
		done <- RunPeriodic(ctx, orch, 5*time.Millisecond, func(context.Context, *model.ScanResult) {
			if atomic.AddInt32(&calls, 1) >= 3 {
				cancel()
			}
		})
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(3))
}

func TestRunPeriodicSkipsSinkOnFailure(t *testing.T) {
	orch := newTestOrchestrator(&stubFetcher{err: errors.New("boom")}, &stubProvider{}, nil)

	sinkCalled := false
	err := RunPeriodic(context.Background(), orch, 0, func(context.Context, *model.ScanResult) {
		sinkCalled = true
	})
	require.NoError(t, err)
	assert.False(t, sinkCalled)
}

func TestRunPeriodicNilSink(t *testing.T) {
	orch := newTestOrchestrator(&stubFetcher{}, &stubProvider{}, nil)
	assert.NoError(t, RunPeriodic(context.Background(), orch, 0, nil))
}
