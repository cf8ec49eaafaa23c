package httpapi

import (
	"context"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/webchat/internal/logx"
	"pkt.systems/webchat/schema"
)

// Hub broadcasts outbound messages per audience and keeps a bounded history
// for Last-Event-ID replay.
type Hub struct {
	mu          sync.Mutex
	audiences   map[schema.Audience]*audienceHub
	historySize int
	log         pslog.Logger
}

type audienceHub struct {
	seq     uint64
	history []schema.OutboundMessage
	subs    map[chan schema.OutboundMessage]struct{}
}

// NewHub constructs a hub with the given history size.
func NewHub(historySize int, logger pslog.Logger) *Hub {
	if historySize <= 0 {
		historySize = 1000
	}
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Hub{
		audiences:   make(map[schema.Audience]*audienceHub),
		historySize: historySize,
		log:         logger,
	}
}

// OnActionDeliver implements core.EventSink. Delivering with no consumer
// attached is best effort: the message only lands in history.
func (h *Hub) OnActionDeliver(event schema.ActionDelivery) {
	log := logx.WithAction(h.log, event.Action.ID)
	if h.Subscribers(schema.AudienceConsumer) == 0 {
		log.Warn("hub action delivered without consumer", "err", schema.ErrConsumerUnavailable, "best_effort", event.BestEffort)
	} else {
		log.Trace("hub action event", "best_effort", event.BestEffort)
	}
	h.publish(schema.DeliverMessage(event))
}

// OnQuoteSync implements core.EventSink.
func (h *Hub) OnQuoteSync(event schema.QuoteSync) {
	h.log.Trace("hub quote sync event", "quotes", len(event.Quotes))
	h.publish(schema.QuoteSyncMessage(event))
}

// OnConsumerOpen implements core.EventSink.
func (h *Hub) OnConsumerOpen(event schema.OpenRequest) {
	h.log.Trace("hub consumer open event", "producer", event.Producer, "attempt", event.Attempt)
	h.publish(schema.OpenMessage(event))
}

// OnToolsUpdated implements core.EventSink.
func (h *Hub) OnToolsUpdated(event schema.ToolsUpdate) {
	h.log.Trace("hub tools event", "tools", len(event.Tools))
	h.publish(schema.ToolsMessage(event))
}

// OnToolbarSettings implements core.EventSink.
func (h *Hub) OnToolbarSettings(settings schema.ToolbarSettings) {
	h.log.Trace("hub toolbar event", "enabled", settings.Enabled)
	h.publish(schema.ToolbarMessage(settings))
}

// Subscribe registers a subscriber for an audience. Messages with a sequence
// above after are returned for replay; registration and replay are atomic so
// nothing published in between is lost.
func (h *Hub) Subscribe(audience schema.Audience, after uint64) (<-chan schema.OutboundMessage, func(), []schema.OutboundMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ah := h.getOrCreateLocked(audience)
	ch := make(chan schema.OutboundMessage, 256)
	ah.subs[ch] = struct{}{}
	var replay []schema.OutboundMessage
	if after > 0 {
		replay = ah.after(after)
	}
	log := logx.WithAudience(h.log, audience)
	log.Info("hub subscribe", "subs", len(ah.subs), "after", after, "replay", len(replay))
	var once sync.Once
	unsub := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(ah.subs, ch)
			close(ch)
			remaining := len(ah.subs)
			h.mu.Unlock()
			log.Info("hub unsubscribe", "subs", remaining)
		})
	}
	return ch, unsub, replay
}

// Subscribers returns the number of live streams for the audience.
func (h *Hub) Subscribers(audience schema.Audience) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ah := h.audiences[audience]; ah != nil {
		return len(ah.subs)
	}
	return 0
}

func (h *Hub) publish(msg schema.OutboundMessage) {
	for _, audience := range schema.AudiencesFor(msg.Kind) {
		h.publishTo(audience, msg)
	}
}

func (h *Hub) publishTo(audience schema.Audience, msg schema.OutboundMessage) {
	h.mu.Lock()
	ah := h.getOrCreateLocked(audience)
	ah.seq++
	msg.Seq = ah.seq
	ah.history = append(ah.history, msg)
	if len(ah.history) > h.historySize {
		ah.history = ah.history[len(ah.history)-h.historySize:]
	}
	dropped := 0
	for sub := range ah.subs {
		select {
		case sub <- msg:
		default:
			dropped++
		}
	}
	h.mu.Unlock()

	if dropped > 0 {
		logx.WithAudience(h.log, audience).Warn("hub event dropped", "kind", msg.Kind, "dropped", dropped)
	}
}

func (h *Hub) getOrCreateLocked(audience schema.Audience) *audienceHub {
	ah := h.audiences[audience]
	if ah == nil {
		ah = &audienceHub{
			subs: make(map[chan schema.OutboundMessage]struct{}),
		}
		h.audiences[audience] = ah
	}
	return ah
}

func (ah *audienceHub) after(seq uint64) []schema.OutboundMessage {
	var out []schema.OutboundMessage
	for _, msg := range ah.history {
		if msg.Seq > seq {
			out = append(out, msg)
		}
	}
	return out
}
