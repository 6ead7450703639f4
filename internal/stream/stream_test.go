package stream

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type collector struct {
	mu    sync.Mutex
	lines []string
}

func (c *collector) Publish(_ context.Context, line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, line)
	return nil
}

func (c *collector) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func TestExpand(t *testing.T) {
	got := Expand(DefaultCommand, "lookuply-celery")
	want := []string{"docker", "logs", "-f", "--tail", "0", "lookuply-celery"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("arg %d: expected %q, got %q", i, want[i], got[i])
		}
	}
	if DefaultCommand[5] != Placeholder {
		t.Error("Expand must not modify the template")
	}
}

func TestNewDefaultCommand(t *testing.T) {
	s := New("lookuply-crawler", nil, &collector{}, zerolog.Nop())
	got := strings.Join(s.Command(), " ")
	if got != "docker logs -f --tail 0 lookuply-crawler" {
		t.Errorf("unexpected command %q", got)
	}
}

func TestStreamReadsLines(t *testing.T) {
	skipWithoutShell(t)

	c := &collector{}
	s := New("line-two", []string{"sh", "-c", "echo line-one; echo {source} 1>&2; echo; echo line-three"}, c, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.Run(ctx); err != nil {
		t.Fatal(err)
	}

	got := c.snapshot()
	if len(got) != 3 {
		t.Fatalf("expected 3 lines, got %q", got)
	}
	if got[0] != "line-one" || got[2] != "line-three" {
		t.Errorf("unexpected lines %q", got)
	}
}

func TestStreamStopsOnCancel(t *testing.T) {
	skipWithoutShell(t)

	c := &collector{}
	s := New("x", []string{"sh", "-c", "echo ready; exec sleep 30"}, c, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = s.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(3 * time.Second)
	for len(c.snapshot()) == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if len(c.snapshot()) == 0 {
		t.Fatal("timed out waiting for first line")
	}

	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not stop after cancellation")
	}
}

func TestStreamLaunchFailure(t *testing.T) {
	c := &collector{}
	s := New("x", []string{"/nonexistent/loomwatch-test-binary", "{source}"}, c, zerolog.Nop())

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil error on launch failure, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after launch failure")
	}
	if len(c.snapshot()) != 0 {
		t.Error("expected no lines")
	}
}
