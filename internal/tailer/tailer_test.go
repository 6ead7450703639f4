package tailer

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// collector records published lines.
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

// waitFor polls until n lines were collected or the timeout expires.
func (c *collector) waitFor(t *testing.T, n int) []string {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if got := c.snapshot(); len(got) >= n {
			return got
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d lines, got %v", n, c.snapshot())
	return nil
}

func appendTo(t *testing.T, path, text string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.WriteString(text); err != nil {
		t.Fatal(err)
	}
}

func startTailer(t *testing.T, path string) (*collector, *Offsets, context.CancelFunc) {
	t.Helper()
	c := &collector{}
	offsets := NewOffsets()
	tail := New(path, c, offsets, zerolog.Nop(), Options{Interval: 50 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = tail.Run(ctx)
		close(done)
	}()

	// Let the tailer record its starting offset.
	time.Sleep(100 * time.Millisecond)

	return c, offsets, func() {
		cancel()
		<-done
	}
}

func TestTailNewLines(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "test.log")
	if err := os.WriteFile(logPath, []byte("existing line\n"), 0644); err != nil {
		t.Fatal(err)
	}

	c, offsets, stop := startTailer(t, logPath)
	defer stop()

	appendTo(t, logPath, "hello from test\n")

	got := c.waitFor(t, 1)
	if got[0] != "hello from test" {
		t.Errorf("expected 'hello from test', got %q", got[0])
	}

	off, ok := offsets.Get(logPath)
	if !ok || off != int64(len("existing line\nhello from test\n")) {
		t.Errorf("unexpected offset %d (found=%v)", off, ok)
	}
}

func TestTailPartialLine(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "partial.log")
	if err := os.WriteFile(logPath, nil, 0644); err != nil {
		t.Fatal(err)
	}

	c, _, stop := startTailer(t, logPath)
	defer stop()

	appendTo(t, logPath, "first half")
	time.Sleep(200 * time.Millisecond)
	if got := c.snapshot(); len(got) != 0 {
		t.Fatalf("expected no lines before newline, got %v", got)
	}

	appendTo(t, logPath, " second half\n")
	got := c.waitFor(t, 1)
	if got[0] != "first half second half" {
		t.Errorf("expected joined line, got %q", got[0])
	}
}

func TestTailMissingFile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "later.log")

	c, _, stop := startTailer(t, logPath)
	defer stop()

	// Files created after start are read from offset 0.
	appendTo(t, logPath, "line one\n\nline two\r\n")

	got := c.waitFor(t, 2)
	if got[0] != "line one" || got[1] != "line two" {
		t.Errorf("unexpected lines %q", got)
	}
}

func TestTailTruncation(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "rotate.log")
	if err := os.WriteFile(logPath, []byte("old content that is fairly long\n"), 0644); err != nil {
		t.Fatal(err)
	}

	c, _, stop := startTailer(t, logPath)
	defer stop()

	if err := os.WriteFile(logPath, []byte("fresh\n"), 0644); err != nil {
		t.Fatal(err)
	}

	got := c.waitFor(t, 1)
	if got[0] != "fresh" {
		t.Errorf("expected 'fresh' after truncation, got %q", got[0])
	}
}

func TestTailWakeChannel(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "wake.log")
	if err := os.WriteFile(logPath, nil, 0644); err != nil {
		t.Fatal(err)
	}

	c := &collector{}
	wake := make(chan struct{}, 1)
	tail := New(logPath, c, NewOffsets(), zerolog.Nop(), Options{Interval: time.Hour, Wake: wake})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tail.Run(ctx)

	time.Sleep(100 * time.Millisecond)
	appendTo(t, logPath, "woken\n")
	wake <- struct{}{}

	got := c.waitFor(t, 1)
	if got[0] != "woken" {
		t.Errorf("expected 'woken', got %q", got[0])
	}
}

func TestOffsets(t *testing.T) {
	o := NewOffsets()
	o.Set("/var/log/app.log", 42)
	o.Set("/var/log/err.log", 1024)

	v1, ok := o.Get("/var/log/app.log")
	if !ok || v1 != 42 {
		t.Errorf("expected 42, got %d (found=%v)", v1, ok)
	}

	all := o.All()
	if len(all) != 2 || all["/var/log/err.log"] != 1024 {
		t.Errorf("unexpected offsets %v", all)
	}

	all["/var/log/app.log"] = 0
	if v, _ := o.Get("/var/log/app.log"); v != 42 {
		t.Error("All must return a copy")
	}

	if _, ok := o.Get("/nonexistent"); ok {
		t.Error("expected missing key to return false")
	}
}
