package hub

import (
	"context"
	"testing"

	"github.com/atikulmunna/loomwatch/internal/model"
	"github.com/rs/zerolog"
)

// BenchmarkHubBroadcast measures the cost of broadcasting to N subscribers.
func BenchmarkHubBroadcast1(b *testing.B)  { benchHubBroadcast(b, 1) }
func BenchmarkHubBroadcast5(b *testing.B)  { benchHubBroadcast(b, 5) }
func BenchmarkHubBroadcast10(b *testing.B) { benchHubBroadcast(b, 10) }

func benchHubBroadcast(b *testing.B, numSubs int) {
	sink := make(chan model.LogEntry, 1024)
	h := New(sink, zerolog.Nop())

	go func() {
		for range sink {
		}
	}()

	for i := 0; i < numSubs; i++ {
		ch := h.Subscribe()
		go func() {
			for range ch {
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Start(ctx)

	entry := model.LogEntry{Service: "bench", Level: model.LevelInfo, Message: "benchmark event"}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		h.Input() <- entry
	}

	cancel()
}
