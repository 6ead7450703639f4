package hub

import (
	"context"
	"errors"
	"testing"

	"github.com/atikulmunna/loomwatch/internal/model"
	"github.com/atikulmunna/loomwatch/internal/parser"
)

func TestPublisherOverridesService(t *testing.T) {
	out := make(chan model.LogEntry, 1)
	p := NewPublisher("search_api", parser.NewUvicornParser(), out)

	err := p.Publish(context.Background(), `INFO:     10.0.0.1:1 - "GET /search HTTP/1.1" 200 OK`)
	if err != nil {
		t.Fatal(err)
	}

	e := <-out
	if e.Service != "search_api" {
		t.Errorf("expected service search_api, got %s", e.Service)
	}
	if e.Message != "GET /search → 200" {
		t.Errorf("unexpected message %q", e.Message)
	}
}

func TestPublisherDropsUnparsed(t *testing.T) {
	out := make(chan model.LogEntry, 1)
	p := NewPublisher("nginx_error", parser.NewNginxErrorParser(), out)

	if err := p.Publish(context.Background(), "an arbitrary string"); err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Errorf("expected nothing published, got %d entries", len(out))
	}
}

func TestPublisherCancelled(t *testing.T) {
	out := make(chan model.LogEntry) // nobody reads
	p := NewPublisher("crawler", parser.NewCrawlerParser(), out)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Publish(ctx, "Crawling URL: https://example.com")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
