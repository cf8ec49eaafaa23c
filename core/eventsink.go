package core

import "pkt.systems/webchat/schema"

// EventSink receives outbound events from the coordinator.
// Implementations must not block and must not call back into the coordinator.
type EventSink interface {
	OnActionDeliver(event schema.ActionDelivery)
	OnQuoteSync(event schema.QuoteSync)
	OnConsumerOpen(event schema.OpenRequest)
	OnToolsUpdated(event schema.ToolsUpdate)
	OnToolbarSettings(event schema.ToolbarSettings)
}

type noopSink struct{}

func (noopSink) OnActionDeliver(schema.ActionDelivery)    {}
func (noopSink) OnQuoteSync(schema.QuoteSync)              {}
func (noopSink) OnConsumerOpen(schema.OpenRequest)         {}
func (noopSink) OnToolsUpdated(schema.ToolsUpdate)         {}
func (noopSink) OnToolbarSettings(schema.ToolbarSettings) {}
