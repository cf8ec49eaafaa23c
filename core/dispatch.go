package core

import (
	"context"
	"errors"
	"fmt"

	"pkt.systems/webchat/internal/logx"
	"pkt.systems/webchat/schema"
)

// HandleMessage routes an inbound message to the matching coordinator operation.
func (c *Coordinator) HandleMessage(ctx context.Context, msg schema.InboundMessage) (schema.Reply, error) {
	if ctx == nil {
		return schema.Reply{}, errors.New("missing context")
	}
	ctx = logx.ContextWithProducer(ctx, msg.Producer)
	logx.WithProducer(ctx, msg.Producer).Debug("coordinator message", "kind", msg.Kind)
	reply := schema.Reply{Kind: msg.Kind}

	switch msg.Kind {
	case schema.KindRequestOpen:
		reply.State = c.RequestOpen(ctx, msg.Producer)
	case schema.KindConsumerReady:
		c.OnConsumerReady(ctx)
		reply.State = c.State()
	case schema.KindConsumerClosed:
		c.OnConsumerClosed(ctx)
		reply.State = c.State()
	case schema.KindActionRequest:
		outcome, id, err := c.RequestAction(ctx, msg.Producer, schema.ActionPayload{Text: msg.Text, Prompt: msg.Prompt}, msg.ActionID)
		if err != nil {
			return schema.Reply{}, err
		}
		reply.Outcome = outcome
		reply.ActionID = id
		reply.State = c.State()
	case schema.KindQuoteAdd:
		quote, err := c.AddQuote(ctx, msg.Text)
		if err != nil {
			return schema.Reply{}, err
		}
		reply.Quote = &quote
		reply.State = c.RequestOpen(ctx, msg.Producer)
	case schema.KindQuoteRemove:
		if msg.QuoteID == "" {
			return schema.Reply{}, fmt.Errorf("%w: quote_id is required", schema.ErrInvalidRequest)
		}
		c.RemoveQuote(ctx, msg.QuoteID)
	case schema.KindQuoteClear:
		c.ClearQuotes(ctx)
	case schema.KindQuoteGetAll:
		reply.Quotes = c.Quotes(ctx)
	case schema.KindToolsGet:
		tools, err := c.Tools(ctx)
		if err != nil {
			return schema.Reply{}, err
		}
		reply.Tools = tools
	case schema.KindToolsAdd:
		if msg.Tool == nil {
			return schema.Reply{}, fmt.Errorf("%w: tool is required", schema.ErrInvalidRequest)
		}
		tool, err := c.AddTool(ctx, *msg.Tool)
		if err != nil {
			return schema.Reply{}, err
		}
		reply.Tool = &tool
	case schema.KindToolsUpdate:
		if msg.Tool == nil {
			return schema.Reply{}, fmt.Errorf("%w: tool is required", schema.ErrInvalidRequest)
		}
		tool, err := c.UpdateTool(ctx, *msg.Tool)
		if err != nil {
			return schema.Reply{}, err
		}
		reply.Tool = &tool
	case schema.KindToolsDelete:
		if err := c.DeleteTool(ctx, msg.ToolID); err != nil {
			return schema.Reply{}, err
		}
	case schema.KindToolInvoke:
		outcome, id, err := c.InvokeTool(ctx, msg.Producer, msg.ToolID, msg.Text)
		if err != nil {
			return schema.Reply{}, err
		}
		reply.Outcome = outcome
		reply.ActionID = id
		reply.State = c.State()
	case schema.KindToolbarGet:
		settings, err := c.ToolbarSettings(ctx)
		if err != nil {
			return schema.Reply{}, err
		}
		reply.Toolbar = &settings
	case schema.KindToolbarUpdate:
		if msg.Toolbar == nil {
			return schema.Reply{}, fmt.Errorf("%w: toolbar is required", schema.ErrInvalidRequest)
		}
		settings, err := c.UpdateToolbarSettings(ctx, *msg.Toolbar)
		if err != nil {
			return schema.Reply{}, err
		}
		reply.Toolbar = &settings
	case schema.KindStatus:
		status := c.Status()
		reply.Status = &status
		reply.State = status.State
	default:
		return schema.Reply{}, fmt.Errorf("%w: %q", schema.ErrUnknownMessage, msg.Kind)
	}
	return reply, nil
}
