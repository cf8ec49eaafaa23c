package webchat

import (
	"context"
	"errors"

	"pkt.systems/webchat/core"
	"pkt.systems/webchat/schema"
)

type eventFanout struct {
	sinks []core.EventSink
}

func (f eventFanout) OnActionDeliver(event schema.ActionDelivery) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnActionDeliver(event)
	}
}

func (f eventFanout) OnQuoteSync(event schema.QuoteSync) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnQuoteSync(event)
	}
}

func (f eventFanout) OnConsumerOpen(event schema.OpenRequest) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnConsumerOpen(event)
	}
}

func (f eventFanout) OnToolsUpdated(event schema.ToolsUpdate) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnToolsUpdated(event)
	}
}

func (f eventFanout) OnToolbarSettings(settings schema.ToolbarSettings) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnToolbarSettings(settings)
	}
}

// openerChain asks every opener in turn; one failing does not stop the rest.
type openerChain []core.ConsumerOpener

func (c openerChain) OpenConsumer(ctx context.Context, req schema.OpenRequest) error {
	var errs []error
	for _, opener := range c {
		if opener == nil {
			continue
		}
		if err := opener.OpenConsumer(ctx, req); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
