package integration_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"strings"
	"testing"
	"time"

	"pkt.systems/webchat/core"
	"pkt.systems/webchat/httpapi"
	"pkt.systems/webchat/internal/persist"
	"pkt.systems/webchat/schema"
)

const testToken = "integration-token"

type testServer struct {
	server *httptest.Server
	coord  *core.Coordinator
	hub    *httpapi.Hub
	client *httpapi.Client
}

func newTestServer(t *testing.T, openTimeout time.Duration) *testServer {
	t.Helper()
	store, err := persist.OpenSQLite(":memory:", nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	cfg := httpapi.Config{AuthToken: testToken, HistorySize: 100, CloseOnConsumerDisconnect: true}
	hub := httpapi.NewHub(cfg.HistorySize, nil)
	coord, err := core.NewCoordinator(schema.CoordinatorConfig{OpenTimeout: openTimeout}, core.Deps{Sink: hub, Store: store})
	if err != nil {
		t.Fatalf("new coordinator: %v", err)
	}
	if err := coord.InitTools(context.Background()); err != nil {
		t.Fatalf("init tools: %v", err)
	}
	server := httptest.NewServer(httpapi.NewServer(cfg, coord, hub).Handler())
	t.Cleanup(server.Close)
	client, err := httpapi.NewClient(server.URL, testToken)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return &testServer{server: server, coord: coord, hub: hub, client: client}
}

func (ts *testServer) send(t *testing.T, msg schema.InboundMessage) schema.Reply {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	reply, err := ts.client.Send(ctx, msg)
	if err != nil {
		t.Fatalf("send %s: %v", msg.Kind, err)
	}
	return reply
}

// streamEvent is a decoded event plus its data line as sent.
type streamEvent struct {
	schema.OutboundMessage
	raw string
}

// stream opens an event stream and returns decoded events.
func (ts *testServer) stream(t *testing.T, ctx context.Context, audience schema.Audience) <-chan streamEvent {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.server.URL+"/api/stream?audience="+string(audience), nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+testToken)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stream status %d", resp.StatusCode)
	}
	reader := bufio.NewReader(resp.Body)
	if _, err := reader.ReadString('\n'); err != nil {
		t.Fatalf("read stream preamble: %v", err)
	}
	events := make(chan streamEvent, 64)
	go func() {
		defer resp.Body.Close()
		defer close(events)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			data, ok := strings.CutPrefix(strings.TrimSpace(line), "data: ")
			if !ok {
				continue
			}
			var msg schema.OutboundMessage
			if err := json.NewDecoder(bytes.NewReader([]byte(data))).Decode(&msg); err != nil {
				return
			}
			events <- streamEvent{OutboundMessage: msg, raw: data}
		}
	}()
	return events
}

func waitForEvent(t *testing.T, events <-chan streamEvent, kind schema.MessageKind) streamEvent {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case msg, ok := <-events:
			if !ok {
				t.Fatalf("stream closed waiting for %s", kind)
			}
			if msg.Kind == kind {
				return msg
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", kind)
		}
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func requireLong(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
}

func requireBrowser(t *testing.T) {
	t.Helper()
	requireLong(t)
	for _, name := range []string{"headless-shell", "chromium", "chromium-browser", "google-chrome", "google-chrome-stable"} {
		if _, err := exec.LookPath(name); err == nil {
			return
		}
	}
	t.Skip("no chrome binary on PATH")
}
