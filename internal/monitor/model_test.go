package monitor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"pkt.systems/webchat/httpapi"
	"pkt.systems/webchat/schema"
)

type stubFetcher struct {
	status *httpapi.StatusResponse
	err    error
	calls  int
}

func (s *stubFetcher) Status(context.Context) (*httpapi.StatusResponse, error) {
	s.calls++
	return s.status, s.err
}

func sampleStatus() *httpapi.StatusResponse {
	return &httpapi.StatusResponse{
		Status: schema.CoordinatorStatus{
			State:          schema.ConsumerOpening,
			QueueSize:      4,
			PendingActions: []schema.ActionID{"a1", "a2", "a3", "a4"},
			Quotes:         2,
			Delivered:      7,
			ForcedFlushes:  1,
			TimerArmed:     true,
		},
		Subscribers:  map[schema.Audience]int{schema.AudienceConsumer: 1},
		PanelVersion: "v1.2.3",
	}
}

func TestUpdateAppliesStatus(t *testing.T) {
	fetcher := &stubFetcher{status: sampleStatus()}
	m := New(Options{Client: fetcher})
	cmd := fetchStatusCmd(context.Background(), fetcher)
	updated, _ := m.Update(cmd())
	m = updated.(Model)
	if m.status == nil || m.polls != 1 {
		t.Fatalf("expected status applied, got %+v", m)
	}
	view := m.View()
	for _, want := range []string{"opening", "a1 a2 a3 +1", "7 (1 forced)", "armed", "consumer 1, producer 0", "v1.2.3"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in view:\n%s", want, view)
		}
	}
}

func TestUpdateKeepsLastStatusOnError(t *testing.T) {
	m := New(Options{})
	updated, _ := m.Update(statusMsg{status: sampleStatus(), at: time.Now()})
	m = updated.(Model)
	updated, _ = m.Update(statusMsg{err: errors.New("connection refused")})
	m = updated.(Model)
	if m.status == nil {
		t.Fatalf("expected previous status to survive an error")
	}
	if !strings.Contains(m.View(), "last poll failed: connection refused") {
		t.Fatalf("expected poll error in view:\n%s", m.View())
	}
}

func TestViewUnreachable(t *testing.T) {
	m := New(Options{})
	updated, _ := m.Update(statusMsg{err: errors.New("boom")})
	if !strings.Contains(updated.(Model).View(), "unreachable: boom") {
		t.Fatalf("expected unreachable view")
	}
}

func TestQuitKey(t *testing.T) {
	m := New(Options{})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}

func TestRefreshKeyFetches(t *testing.T) {
	fetcher := &stubFetcher{status: sampleStatus()}
	m := New(Options{Client: fetcher})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if cmd == nil {
		t.Fatalf("expected refresh command")
	}
	if _, ok := cmd().(statusMsg); !ok || fetcher.calls != 1 {
		t.Fatalf("expected a status fetch, calls=%d", fetcher.calls)
	}
}

func TestFormatAge(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if got := formatAge(time.Time{}, now); got != "never" {
		t.Fatalf("formatAge zero = %q", got)
	}
	if got := formatAge(now.Add(-1500*time.Millisecond), now); got != "1s ago" {
		t.Fatalf("formatAge = %q, want 1s ago", got)
	}
}
