package eventbus

import (
	"context"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/webchat/internal/logx"
	"pkt.systems/webchat/schema"
)

// Bus fans outbound coordinator events to in-process subscribers per audience.
type Bus struct {
	mu    sync.Mutex
	subs  map[schema.Audience]map[chan schema.OutboundMessage]struct{}
	log   pslog.Logger
	depth int
}

// New constructs a Bus.
func New(logger pslog.Logger) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus{
		subs:  make(map[schema.Audience]map[chan schema.OutboundMessage]struct{}),
		log:   logger,
		depth: 256,
	}
}

// Subscribe registers a subscriber for the audience and returns a channel + cancel.
func (b *Bus) Subscribe(audience schema.Audience) (<-chan schema.OutboundMessage, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan schema.OutboundMessage, b.depth)
	b.mu.Lock()
	audienceSubs := b.subs[audience]
	if audienceSubs == nil {
		audienceSubs = make(map[chan schema.OutboundMessage]struct{})
		b.subs[audience] = audienceSubs
	}
	audienceSubs[ch] = struct{}{}
	count := len(audienceSubs)
	b.mu.Unlock()
	logx.WithAudience(b.log, audience).Debug("eventbus subscribe", "subs", count)
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if subs := b.subs[audience]; subs != nil {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(b.subs, audience)
				}
			}
			b.mu.Unlock()
			close(ch)
			logx.WithAudience(b.log, audience).Debug("eventbus unsubscribe")
		})
	}
}

// Subscribers returns the number of subscribers for the audience.
func (b *Bus) Subscribers(audience schema.Audience) int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[audience])
}

// OnActionDeliver publishes an action delivery.
func (b *Bus) OnActionDeliver(event schema.ActionDelivery) {
	b.publish(schema.DeliverMessage(event))
}

// OnQuoteSync publishes the full quote list.
func (b *Bus) OnQuoteSync(event schema.QuoteSync) {
	b.publish(schema.QuoteSyncMessage(event))
}

// OnConsumerOpen publishes an open request.
func (b *Bus) OnConsumerOpen(event schema.OpenRequest) {
	b.publish(schema.OpenMessage(event))
}

// OnToolsUpdated publishes the tool list.
func (b *Bus) OnToolsUpdated(event schema.ToolsUpdate) {
	b.publish(schema.ToolsMessage(event))
}

// OnToolbarSettings publishes toolbar settings.
func (b *Bus) OnToolbarSettings(settings schema.ToolbarSettings) {
	b.publish(schema.ToolbarMessage(settings))
}

func (b *Bus) publish(msg schema.OutboundMessage) {
	if b == nil {
		return
	}
	for _, audience := range schema.AudiencesFor(msg.Kind) {
		b.publishTo(audience, msg)
	}
}

func (b *Bus) publishTo(audience schema.Audience, msg schema.OutboundMessage) {
	b.mu.Lock()
	// Sends happen under the lock so a concurrent cancel cannot close a channel mid-send.
	dropped := 0
	for sub := range b.subs[audience] {
		select {
		case sub <- msg:
		default:
			dropped++
		}
	}
	b.mu.Unlock()
	if dropped > 0 {
		logx.WithAudience(b.log, audience).Trace("eventbus dropped", "kind", msg.Kind, "count", dropped)
	}
}
