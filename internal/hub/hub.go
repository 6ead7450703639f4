package hub

import (
	"context"
	"sync"

	"github.com/atikulmunna/loomwatch/internal/metrics"
	"github.com/atikulmunna/loomwatch/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	inputBuffer      = 1024
	subscriberBuffer = 1024
)

type subscriber struct {
	id      string
	ch      chan model.LogEntry
	dropped int64
}

// Hub is the single fan-in point for every source worker. It forwards each
// entry to the aggregator sink, in arrival order, and copies it to any
// number of lossy subscribers.
type Hub struct {
	input       chan model.LogEntry
	sink        chan<- model.LogEntry
	log         zerolog.Logger
	mu          sync.RWMutex
	subscribers map[<-chan model.LogEntry]*subscriber
	dropped     int64
}

// New creates a Hub that delivers every entry to sink.
func New(sink chan<- model.LogEntry, log zerolog.Logger) *Hub {
	return &Hub{
		input:       make(chan model.LogEntry, inputBuffer),
		sink:        sink,
		log:         log.With().Str("component", "hub").Logger(),
		subscribers: make(map[<-chan model.LogEntry]*subscriber),
	}
}

// Input returns the channel source workers publish to.
func (h *Hub) Input() chan<- model.LogEntry {
	return h.input
}

// Subscribe returns a buffered channel that will receive parsed log entries.
// Entries are dropped for this subscriber when its buffer is full.
func (h *Hub) Subscribe() <-chan model.LogEntry {
	ch := make(chan model.LogEntry, subscriberBuffer)
	h.mu.Lock()
	h.subscribers[ch] = &subscriber{id: uuid.NewString(), ch: ch}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a subscription.
func (h *Hub) Unsubscribe(ch <-chan model.LogEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.subscribers[ch]; ok {
		close(s.ch)
		delete(h.subscribers, ch)
	}
}

// Dropped returns the total number of entries dropped due to slow subscribers.
func (h *Hub) Dropped() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

// Start forwards entries until the context is cancelled.
func (h *Hub) Start(ctx context.Context) {
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return
		case entry := <-h.input:
			if h.sink != nil {
				select {
				case h.sink <- entry:
				case <-ctx.Done():
					return
				}
			}
			h.broadcast(entry)
		}
	}
}

// broadcast sends an entry to all subscribers.
// If a subscriber's channel is full, the entry is dropped for that subscriber.
func (h *Hub) broadcast(entry model.LogEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, s := range h.subscribers {
		select {
		case s.ch <- entry:
		default:
			s.dropped++
			h.dropped++
			metrics.SubscriberDrop()
			if s.dropped == 1 || s.dropped%100 == 0 {
				h.log.Warn().Str("subscriber", s.id).Int64("dropped", s.dropped).Msg("slow subscriber, dropping entries")
			}
		}
	}
}

// closeAll closes all subscriber channels.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for key, s := range h.subscribers {
		close(s.ch)
		delete(h.subscribers, key)
	}
}
