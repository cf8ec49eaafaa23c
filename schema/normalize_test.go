package schema

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidateActionPayload(t *testing.T) {
	cases := []struct {
		name    string
		payload ActionPayload
		valid   bool
	}{
		{"simple", ActionPayload{Text: "Hello", Prompt: "Translate"}, true},
		{"padded", ActionPayload{Text: "  Hello ", Prompt: "\tTranslate\n"}, true},
		{"empty-text", ActionPayload{Text: "", Prompt: "Translate"}, false},
		{"empty-prompt", ActionPayload{Text: "Hello", Prompt: ""}, false},
		{"blank-text", ActionPayload{Text: "   ", Prompt: "Translate"}, false},
		{"blank-prompt", ActionPayload{Text: "Hello", Prompt: "\n\t"}, false},
		{"both-empty", ActionPayload{}, false},
	}

	for _, tc := range cases {
		err := ValidateActionPayload(tc.payload)
		if tc.valid {
			if err != nil {
				t.Fatalf("case %q expected valid, got error: %v", tc.name, err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidAction) {
			t.Fatalf("case %q expected ErrInvalidAction, got %v", tc.name, err)
		}
	}
}

func TestNormalizeActionID(t *testing.T) {
	cases := []struct {
		name  string
		id    ActionID
		want  ActionID
		valid bool
	}{
		{"empty", "", "", true},
		{"blank", "  ", "", true},
		{"simple", "1700000000000abc123", "1700000000000abc123", true},
		{"trimmed", " act-1 ", "act-1", true},
		{"inner-space", "act 1", "", false},
		{"control", "act\x00", "", false},
		{"too-long", ActionID(strings.Repeat("a", maxActionIDLength+1)), "", false},
	}
	for _, tc := range cases {
		got, err := NormalizeActionID(tc.id)
		if tc.valid && err != nil {
			t.Fatalf("case %q expected valid, got error: %v", tc.name, err)
		}
		if !tc.valid && err == nil {
			t.Fatalf("case %q expected error, got nil", tc.name)
		}
		if got != tc.want {
			t.Fatalf("case %q expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

func TestNormalizeTool(t *testing.T) {
	tool, err := NormalizeTool(Tool{ID: " t1 ", Name: " Summarize ", Prompt: " Summarize this "})
	if err != nil {
		t.Fatalf("normalize tool: %v", err)
	}
	if tool.ID != "t1" || tool.Name != "Summarize" || tool.Prompt != "Summarize this" {
		t.Fatalf("unexpected tool: %+v", tool)
	}
	if _, err := NormalizeTool(Tool{Name: "x"}); !errors.Is(err, ErrInvalidTool) {
		t.Fatalf("expected ErrInvalidTool, got %v", err)
	}
}

func TestNormalizeCoordinatorConfigDefaults(t *testing.T) {
	cfg, err := NormalizeCoordinatorConfig(CoordinatorConfig{})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.OpenTimeout != 800*time.Millisecond {
		t.Fatalf("expected 800ms open timeout, got %v", cfg.OpenTimeout)
	}
	if cfg.DebounceWindow != time.Second {
		t.Fatalf("expected 1s debounce, got %v", cfg.DebounceWindow)
	}
	if cfg.DeliveredIDMemory != DefaultDeliveredIDMemory {
		t.Fatalf("expected default id memory, got %d", cfg.DeliveredIDMemory)
	}
	if _, err := NormalizeCoordinatorConfig(CoordinatorConfig{OpenTimeout: -1}); err == nil {
		t.Fatalf("expected error for negative timeout")
	}
}

func TestNormalizeCoordinatorConfigKeepsDisabledDebounce(t *testing.T) {
	for _, window := range []time.Duration{DebounceDisabled, -250 * time.Millisecond} {
		cfg, err := NormalizeCoordinatorConfig(CoordinatorConfig{DebounceWindow: window})
		if err != nil {
			t.Fatalf("normalize %v: %v", window, err)
		}
		if cfg.DebounceWindow != window {
			t.Fatalf("expected debounce window %v to be kept, got %v", window, cfg.DebounceWindow)
		}
	}
}

func TestActionPayloadContent(t *testing.T) {
	payload := ActionPayload{Text: "Hello", Prompt: "Translate"}
	if got := payload.Content(); got != "> Hello\n\nTranslate" {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestParseAudience(t *testing.T) {
	if got, err := ParseAudience("consumer"); err != nil || got != AudienceConsumer {
		t.Fatalf("expected consumer, got %q (%v)", got, err)
	}
	if got, err := ParseAudience(""); err != nil || got != AudienceProducer {
		t.Fatalf("expected producer default, got %q (%v)", got, err)
	}
	if _, err := ParseAudience("panel"); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestQuoteSyncMessageNeverNil(t *testing.T) {
	msg := QuoteSyncMessage(QuoteSync{})
	if msg.Quotes == nil || len(msg.Quotes) != 0 {
		t.Fatalf("expected empty non-nil quotes, got %#v", msg.Quotes)
	}
	if msg.Kind != KindQuoteSync {
		t.Fatalf("unexpected kind %q", msg.Kind)
	}
}

func TestAudiencesFor(t *testing.T) {
	if got := AudiencesFor(KindActionDeliver); len(got) != 1 || got[0] != AudienceConsumer {
		t.Fatalf("expected deliveries for the consumer only, got %v", got)
	}
	if got := AudiencesFor(KindQuoteSync); len(got) != 2 {
		t.Fatalf("expected quote sync for both audiences, got %v", got)
	}
	if got := AudiencesFor(KindConsumerOpen); len(got) != 1 || got[0] != AudienceProducer {
		t.Fatalf("expected open requests for producers, got %v", got)
	}
	if got := AudiencesFor(KindStatus); got != nil {
		t.Fatalf("expected inbound kinds to have no audience, got %v", got)
	}
}
