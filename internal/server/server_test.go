package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/atikulmunna/loomwatch/internal/aggregator"
	"github.com/atikulmunna/loomwatch/internal/model"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

type fakeAgg struct{ snap aggregator.Snapshot }

func (f fakeAgg) Snapshot() aggregator.Snapshot { return f.snap }

type fakeHub struct {
	ch           chan model.LogEntry
	subscribed   chan struct{}
	unsubscribed chan struct{}
}

func newFakeHub() *fakeHub {
	return &fakeHub{
		ch:           make(chan model.LogEntry, 8),
		subscribed:   make(chan struct{}, 1),
		unsubscribed: make(chan struct{}, 1),
	}
}

func (f *fakeHub) Subscribe() <-chan model.LogEntry {
	f.subscribed <- struct{}{}
	return f.ch
}

func (f *fakeHub) Unsubscribe(<-chan model.LogEntry) { f.unsubscribed <- struct{}{} }

func (f *fakeHub) Dropped() int64 { return 4 }

func newTestServer(t *testing.T, h *fakeHub) *httptest.Server {
	t.Helper()
	agg := fakeAgg{snap: aggregator.Snapshot{
		Uptime:        "1m0s",
		TotalEvents:   42,
		TotalRequests: 2,
		TopPaths:      []aggregator.PathCount{{Path: "/search", Count: 2}},
	}}
	srv := httptest.NewServer(New(":0", agg, h, zerolog.Nop()).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, into any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		t.Fatal(err)
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, newFakeHub())

	var body map[string]any
	getJSON(t, srv.URL+"/healthz", &body)

	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
	if body["total_events"] != float64(42) {
		t.Errorf("expected 42 events, got %v", body["total_events"])
	}
	if body["dropped"] != float64(4) {
		t.Errorf("expected 4 dropped, got %v", body["dropped"])
	}
}

func TestSnapshotEndpoint(t *testing.T) {
	srv := newTestServer(t, newFakeHub())

	var snap aggregator.Snapshot
	getJSON(t, srv.URL+"/api/snapshot", &snap)

	if snap.TotalRequests != 2 || len(snap.TopPaths) != 1 || snap.TopPaths[0].Path != "/search" {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if snap.Stats != nil {
		t.Error("expected no stats before the first fetch")
	}
}

func TestCORS(t *testing.T) {
	srv := newTestServer(t, newFakeHub())

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/snapshot", nil)
	req.Header.Set("Origin", "http://grafana.local")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected wildcard CORS origin, got %q", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, newFakeHub())

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "loomwatch_source_workers") {
		t.Errorf("expected loomwatch metrics, got:\n%s", body)
	}
}

func TestWebSocketStream(t *testing.T) {
	h := newFakeHub()
	srv := newTestServer(t, h)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}

	select {
	case <-h.subscribed:
	case <-time.After(2 * time.Second):
		t.Fatal("handler never subscribed")
	}

	h.ch <- model.LogEntry{
		Timestamp: time.Now(),
		Service:   "celery",
		Level:     model.LevelError,
		Message:   "ValueError: bad input",
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got model.LogEntry
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatal(err)
	}
	if got.Service != "celery" || got.Level != model.LevelError || got.Message != "ValueError: bad input" {
		t.Errorf("unexpected entry %+v", got)
	}

	conn.Close()
	select {
	case <-h.unsubscribed:
	case <-time.After(2 * time.Second):
		t.Fatal("expected unsubscribe after client disconnect")
	}
}

func TestServeShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	s := New(ln.Addr().String(), fakeAgg{}, newFakeHub(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	var resp *http.Response
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if resp, err = http.Get("http://" + ln.Addr().String() + "/healthz"); err == nil {
			resp.Body.Close()
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatal(err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("server did not shut down")
	}
}
