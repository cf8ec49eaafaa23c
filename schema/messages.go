package schema

import (
	"encoding/json"
	"time"
)

// MessageKind is the wire name of an inbound or outbound message.
type MessageKind string

// Inbound message kinds.
const (
	KindRequestOpen    MessageKind = "requestOpen"
	KindConsumerReady  MessageKind = "consumerReady"
	KindConsumerClosed MessageKind = "consumerClosed"
	KindActionRequest  MessageKind = "action.request"
	KindQuoteAdd       MessageKind = "quote.add"
	KindQuoteRemove    MessageKind = "quote.remove"
	KindQuoteClear     MessageKind = "quote.clear"
	KindQuoteGetAll    MessageKind = "quote.getAll"
	KindToolsGet       MessageKind = "tools.get"
	KindToolsAdd       MessageKind = "tools.add"
	KindToolsUpdate    MessageKind = "tools.update"
	KindToolsDelete    MessageKind = "tools.delete"
	KindToolInvoke     MessageKind = "tool.invoke"
	KindToolbarGet     MessageKind = "toolbar.get"
	KindToolbarUpdate  MessageKind = "toolbar.update"
	KindStatus         MessageKind = "status"
)

// Outbound message kinds.
const (
	KindActionDeliver   MessageKind = "action.deliver"
	KindQuoteSync       MessageKind = "quote.sync"
	KindConsumerOpen    MessageKind = "consumer.open"
	KindToolsUpdated    MessageKind = "tools.updated"
	KindToolbarSettings MessageKind = "toolbar.settings"
)

// Audience selects which side of the relay an outbound message is for.
type Audience string

const (
	// AudienceConsumer is the single panel.
	AudienceConsumer Audience = "consumer"
	// AudienceProducer covers content scripts and the host shell.
	AudienceProducer Audience = "producer"
)

// ParseAudience validates an audience name.
func ParseAudience(value string) (Audience, error) {
	switch Audience(value) {
	case AudienceConsumer:
		return AudienceConsumer, nil
	case AudienceProducer, "":
		return AudienceProducer, nil
	default:
		return "", ErrInvalidRequest
	}
}

// InboundMessage is a request sent by a producer or the consumer.
type InboundMessage struct {
	Kind     MessageKind      `json:"kind"`
	Producer ProducerID       `json:"producer,omitempty"`
	ActionID ActionID         `json:"action_id,omitempty"`
	Text     string           `json:"text,omitempty"`
	Prompt   string           `json:"prompt,omitempty"`
	QuoteID  QuoteID          `json:"quote_id,omitempty"`
	ToolID   ToolID           `json:"tool_id,omitempty"`
	Tool     *Tool            `json:"tool,omitempty"`
	Toolbar  *ToolbarSettings `json:"toolbar,omitempty"`
}

// Reply is the synchronous answer to an inbound message.
type Reply struct {
	Kind     MessageKind        `json:"kind"`
	Outcome  ActionOutcome      `json:"outcome,omitempty"`
	ActionID ActionID           `json:"action_id,omitempty"`
	State    ConsumerState      `json:"state,omitempty"`
	Quote    *Quote             `json:"quote,omitempty"`
	Quotes   []Quote            `json:"quotes,omitempty"`
	Tool     *Tool              `json:"tool,omitempty"`
	Tools    []Tool             `json:"tools,omitempty"`
	Toolbar  *ToolbarSettings   `json:"toolbar,omitempty"`
	Status   *CoordinatorStatus `json:"status,omitempty"`
}

// ActionDelivery is the outbound action.deliver event.
type ActionDelivery struct {
	Action Action
	// BestEffort is set when the delivery was forced by the open timeout.
	BestEffort bool
}

// QuoteSync is the outbound quote.sync event carrying the full list.
type QuoteSync struct {
	Quotes []Quote
}

// OpenRequest is the outbound consumer.open event.
type OpenRequest struct {
	Producer ProducerID
	Attempt  uint64
}

// ToolsUpdate is the outbound tools.updated event.
type ToolsUpdate struct {
	Tools []Tool
}

// OutboundMessage is the wire form of every outbound event.
type OutboundMessage struct {
	Seq        uint64           `json:"seq"`
	Kind       MessageKind      `json:"kind"`
	ActionID   ActionID         `json:"action_id,omitempty"`
	Text       string           `json:"text,omitempty"`
	Prompt     string           `json:"prompt,omitempty"`
	Content    string           `json:"content,omitempty"`
	BestEffort bool             `json:"best_effort,omitempty"`
	Quotes     []Quote          `json:"quotes,omitempty"`
	Tools      []Tool           `json:"tools,omitempty"`
	Toolbar    *ToolbarSettings `json:"toolbar,omitempty"`
	Producer   ProducerID       `json:"producer,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
}

// DeliverMessage builds the wire form of an action delivery.
func DeliverMessage(delivery ActionDelivery) OutboundMessage {
	return OutboundMessage{
		Kind:       KindActionDeliver,
		ActionID:   delivery.Action.ID,
		Text:       delivery.Action.Payload.Text,
		Prompt:     delivery.Action.Payload.Prompt,
		Content:    delivery.Action.Payload.Content(),
		BestEffort: delivery.BestEffort,
		Timestamp:  time.Now(),
	}
}

// QuoteSyncMessage builds the wire form of a quote broadcast.
func QuoteSyncMessage(event QuoteSync) OutboundMessage {
	return OutboundMessage{
		Kind:      KindQuoteSync,
		Quotes:    event.Quotes,
		Timestamp: time.Now(),
	}
}

// OpenMessage builds the wire form of a consumer open request.
func OpenMessage(event OpenRequest) OutboundMessage {
	return OutboundMessage{
		Kind:      KindConsumerOpen,
		Producer:  event.Producer,
		Timestamp: time.Now(),
	}
}

// ToolsMessage builds the wire form of a tools update.
func ToolsMessage(event ToolsUpdate) OutboundMessage {
	return OutboundMessage{
		Kind:      KindToolsUpdated,
		Tools:     event.Tools,
		Timestamp: time.Now(),
	}
}

// ToolbarMessage builds the wire form of a toolbar settings broadcast.
func ToolbarMessage(settings ToolbarSettings) OutboundMessage {
	return OutboundMessage{
		Kind:      KindToolbarSettings,
		Toolbar:   &settings,
		Timestamp: time.Now(),
	}
}

// AudiencesFor returns which audiences receive an outbound message kind.
func AudiencesFor(kind MessageKind) []Audience {
	switch kind {
	case KindActionDeliver:
		return []Audience{AudienceConsumer}
	case KindQuoteSync:
		return []Audience{AudienceConsumer, AudienceProducer}
	case KindConsumerOpen, KindToolsUpdated, KindToolbarSettings:
		return []Audience{AudienceProducer}
	default:
		return nil
	}
}

// MarshalJSON always writes the list a list-carrying kind is defined by, so
// an empty quote or tool list goes out as [] rather than being omitted.
func (m OutboundMessage) MarshalJSON() ([]byte, error) {
	type wire OutboundMessage
	switch m.Kind {
	case KindQuoteSync:
		return json.Marshal(struct {
			wire
			Quotes []Quote `json:"quotes"`
		}{wire(m), quotesOrEmpty(m.Quotes)})
	case KindToolsUpdated:
		return json.Marshal(struct {
			wire
			Tools []Tool `json:"tools"`
		}{wire(m), toolsOrEmpty(m.Tools)})
	default:
		return json.Marshal(wire(m))
	}
}

// MarshalJSON always writes the list for quote.getAll and tools.get replies.
func (r Reply) MarshalJSON() ([]byte, error) {
	type wire Reply
	switch r.Kind {
	case KindQuoteGetAll:
		return json.Marshal(struct {
			wire
			Quotes []Quote `json:"quotes"`
		}{wire(r), quotesOrEmpty(r.Quotes)})
	case KindToolsGet:
		return json.Marshal(struct {
			wire
			Tools []Tool `json:"tools"`
		}{wire(r), toolsOrEmpty(r.Tools)})
	default:
		return json.Marshal(wire(r))
	}
}

func quotesOrEmpty(quotes []Quote) []Quote {
	if quotes == nil {
		return []Quote{}
	}
	return quotes
}

func toolsOrEmpty(tools []Tool) []Tool {
	if tools == nil {
		return []Tool{}
	}
	return tools
}
