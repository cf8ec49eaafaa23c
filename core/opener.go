package core

import (
	"context"

	"pkt.systems/webchat/schema"
)

// ConsumerOpener is the host-shell primitive that brings up the consumer surface.
// It is called outside the coordinator lock and may block.
type ConsumerOpener interface {
	OpenConsumer(ctx context.Context, req schema.OpenRequest) error
}

// OpenerFunc adapts a function to ConsumerOpener.
type OpenerFunc func(ctx context.Context, req schema.OpenRequest) error

// OpenConsumer implements ConsumerOpener.
func (f OpenerFunc) OpenConsumer(ctx context.Context, req schema.OpenRequest) error {
	return f(ctx, req)
}
