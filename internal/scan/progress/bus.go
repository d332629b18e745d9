package progress

import "sync"

// Event is one scan progress update, emitted on every stage transition.
type Event struct {
	ScanID  string `json:"scan_id"`
	Stage   string `json:"stage"`
	Status  string `json:"status"`
	Count   int    `json:"count,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Bus fans scan events out to subscribers. Publishing never blocks: a
// subscriber that falls behind loses events instead of stalling the pipeline.
type Bus struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewBus creates an empty progress bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a new subscriber. The returned cancel function must be
// called to release the channel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 64)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber that has buffer space.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
