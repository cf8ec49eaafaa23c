package logx

import (
	"context"

	"pkt.systems/pslog"
	"pkt.systems/webchat/schema"
)

type contextKey int

const (
	producerKey contextKey = iota
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	if ctx == nil {
		ctx = context.Background()
	}
	return pslog.Ctx(ctx)
}

// WithProducer annotates the logger with the producer id if present.
func WithProducer(ctx context.Context, producer schema.ProducerID) pslog.Logger {
	log := Ctx(ctx)
	if producer != "" {
		if current, ok := ctx.Value(producerKey).(schema.ProducerID); ok && current == producer {
			return log
		}
		log = log.With("producer", producer)
	}
	return log
}

// WithAction annotates the logger with an action id when available.
func WithAction(log pslog.Logger, actionID schema.ActionID) pslog.Logger {
	if actionID != "" {
		log = log.With("action", actionID)
	}
	return log
}

// WithAudience annotates the logger with an outbound audience.
func WithAudience(log pslog.Logger, audience schema.Audience) pslog.Logger {
	if audience != "" {
		log = log.With("audience", audience)
	}
	return log
}

// ContextWithProducer stores the producer marker on the context for log de-duplication.
func ContextWithProducer(ctx context.Context, producer schema.ProducerID) context.Context {
	if ctx == nil || producer == "" {
		return ctx
	}
	return context.WithValue(ctx, producerKey, producer)
}

// ContextWithProducerLogger attaches the logger and producer marker to the context.
func ContextWithProducerLogger(ctx context.Context, log pslog.Logger, producer schema.ProducerID) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithProducer(ctx, producer)
}

// CopyContextFields copies the producer marker from src to dst.
func CopyContextFields(dst context.Context, src context.Context) context.Context {
	if src == nil {
		return dst
	}
	if producer, ok := src.Value(producerKey).(schema.ProducerID); ok && producer != "" {
		dst = ContextWithProducer(dst, producer)
	}
	return dst
}
