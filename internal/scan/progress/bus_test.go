package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusFansOutToAllSubscribers(t *testing.T) {
	bus := NewBus()
	a, cancelA := bus.Subscribe()
	defer cancelA()
	b, cancelB := bus.Subscribe()
	defer cancelB()

	bus.Publish(Event{ScanID: "s1", Stage: "FETCHING", Status: "progress"})

	evA := <-a
	evB := <-b
	assert.Equal(t, "s1", evA.ScanID)
	assert.Equal(t, evA, evB)
}

func TestBusPreservesEventOrder(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe()
	defer cancel()

	stages := []string{"FETCHING", "FILTERING", "SCORING", "DONE"}
	for _, s := range stages {
		bus.Publish(Event{Stage: s})
	}
	for _, s := range stages {
		assert.Equal(t, s, (<-ch).Stage)
	}
}

func TestBusPublishNeverBlocksOnFullSubscriber(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe()
	defer cancel()

	// 64 fills the buffer; the rest are dropped rather than stalling
	// the publisher.
	for i := 0; i < 200; i++ {
		bus.Publish(Event{Stage: "FILTERING", Count: i}) // must not block
	}
	require.Len(t, ch, 64)
	assert.Equal(t, 0, (<-ch).Count)
}

func TestBusCancelStopsDelivery(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe()
	cancel()

	bus.Publish(Event{Stage: "FETCHING"})

	_, open := <-ch
	assert.False(t, open)

	// Double cancel is safe.
	cancel()
}
