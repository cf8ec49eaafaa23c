package schema

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestOutboundListsAreAlwaysEncoded(t *testing.T) {
	cases := []struct {
		name string
		msg  OutboundMessage
		want string
	}{
		{"empty quote sync", QuoteSyncMessage(QuoteSync{}), `"quotes":[]`},
		{"empty tools update", ToolsMessage(ToolsUpdate{}), `"tools":[]`},
		{"quote sync", QuoteSyncMessage(QuoteSync{Quotes: []Quote{{ID: "q1", Text: "foo"}}}), `"quotes":[{"id":"q1","text":"foo"}]`},
	}
	for _, tc := range cases {
		data, err := json.Marshal(tc.msg)
		if err != nil {
			t.Fatalf("%s: marshal: %v", tc.name, err)
		}
		if !strings.Contains(string(data), tc.want) {
			t.Fatalf("%s: expected %s in %s", tc.name, tc.want, data)
		}
		if strings.Count(string(data), `"quotes"`) > 1 || strings.Count(string(data), `"tools"`) > 1 {
			t.Fatalf("%s: list encoded twice: %s", tc.name, data)
		}
	}
}

func TestOutboundOtherKindsOmitLists(t *testing.T) {
	data, err := json.Marshal(OpenMessage(OpenRequest{Producer: "tab-1"}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), `"quotes"`) || strings.Contains(string(data), `"tools"`) {
		t.Fatalf("unexpected list in consumer.open: %s", data)
	}
	if !strings.Contains(string(data), `"producer":"tab-1"`) {
		t.Fatalf("expected producer field: %s", data)
	}
}

func TestReplyListsAreAlwaysEncoded(t *testing.T) {
	cases := []struct {
		reply Reply
		want  string
	}{
		{Reply{Kind: KindQuoteGetAll}, `"quotes":[]`},
		{Reply{Kind: KindQuoteGetAll, Quotes: []Quote{}}, `"quotes":[]`},
		{Reply{Kind: KindToolsGet}, `"tools":[]`},
	}
	for _, tc := range cases {
		data, err := json.Marshal(tc.reply)
		if err != nil {
			t.Fatalf("%s: marshal: %v", tc.reply.Kind, err)
		}
		if !strings.Contains(string(data), tc.want) {
			t.Fatalf("%s: expected %s in %s", tc.reply.Kind, tc.want, data)
		}
	}
	data, err := json.Marshal(Reply{Kind: KindQuoteClear})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"kind":"quote.clear"}` {
		t.Fatalf("unexpected quote.clear reply %s", data)
	}
}

func TestOutboundMessageRoundTripsThroughMarshalJSON(t *testing.T) {
	in := QuoteSyncMessage(QuoteSync{Quotes: []Quote{{ID: "q1", Text: "foo"}}})
	in.Seq = 7
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out OutboundMessage
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Seq != 7 || out.Kind != KindQuoteSync || len(out.Quotes) != 1 || out.Quotes[0].Text != "foo" {
		t.Fatalf("unexpected decoded message %+v", out)
	}
}
