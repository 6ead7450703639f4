package hub

import (
	"context"

	"github.com/atikulmunna/loomwatch/internal/metrics"
	"github.com/atikulmunna/loomwatch/internal/model"
	"github.com/atikulmunna/loomwatch/internal/parser"
)

// Publisher parses raw lines for one service and publishes the resulting
// entries. Each source worker owns one, so per-source order is preserved.
type Publisher struct {
	service string
	parser  parser.Parser
	out     chan<- model.LogEntry
}

// NewPublisher creates a Publisher that writes to out.
func NewPublisher(service string, p parser.Parser, out chan<- model.LogEntry) *Publisher {
	return &Publisher{service: service, parser: p, out: out}
}

// Publish parses one raw line. Unrecognized lines are dropped silently.
// It only fails when the context is cancelled while waiting to send.
func (p *Publisher) Publish(ctx context.Context, line string) error {
	entry, ok := p.parser.Parse(line)
	if !ok {
		metrics.LineDropped(p.service)
		return nil
	}
	entry = entry.WithService(p.service)
	metrics.LineIngested(p.service, string(entry.Level))

	select {
	case p.out <- entry:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
