package core

import (
	"context"

	"pkt.systems/webchat/internal/logx"
	"pkt.systems/webchat/schema"
)

// quoteList is the ordered set of captured quotes.
type quoteList struct {
	items []schema.Quote
}

func newQuoteList() *quoteList {
	return &quoteList{}
}

func (l *quoteList) add(quote schema.Quote) {
	l.items = append(l.items, quote)
}

func (l *quoteList) remove(id schema.QuoteID) bool {
	kept := l.items[:0]
	removed := false
	for _, quote := range l.items {
		if quote.ID == id {
			removed = true
			continue
		}
		kept = append(kept, quote)
	}
	l.items = kept
	return removed
}

func (l *quoteList) clear() {
	l.items = nil
}

func (l *quoteList) len() int {
	return len(l.items)
}

func (l *quoteList) snapshot() []schema.Quote {
	out := make([]schema.Quote, len(l.items))
	copy(out, l.items)
	return out
}

// AddQuote appends a quote and broadcasts the full list.
func (c *Coordinator) AddQuote(ctx context.Context, text string) (schema.Quote, error) {
	text, err := schema.NormalizeQuoteText(text)
	if err != nil {
		return schema.Quote{}, err
	}
	quote := schema.Quote{ID: schema.QuoteID(newID()), Text: text}
	c.mu.Lock()
	c.quotes.add(quote)
	count := c.broadcastQuotesLocked()
	c.mu.Unlock()
	logx.Ctx(ctx).Info("coordinator quote added", "quote", quote.ID, "quotes", count)
	return quote, nil
}

// RemoveQuote drops the quote with the given id and broadcasts the full list.
// Removing an unknown id still broadcasts.
func (c *Coordinator) RemoveQuote(ctx context.Context, id schema.QuoteID) bool {
	c.mu.Lock()
	removed := c.quotes.remove(id)
	count := c.broadcastQuotesLocked()
	c.mu.Unlock()
	logx.Ctx(ctx).Info("coordinator quote removed", "quote", id, "found", removed, "quotes", count)
	return removed
}

// ClearQuotes empties the list and broadcasts it.
func (c *Coordinator) ClearQuotes(ctx context.Context) {
	c.mu.Lock()
	c.quotes.clear()
	c.broadcastQuotesLocked()
	c.mu.Unlock()
	logx.Ctx(ctx).Info("coordinator quotes cleared")
}

// Quotes returns the full list for a late-joining consumer and re-broadcasts it.
func (c *Coordinator) Quotes(ctx context.Context) []schema.Quote {
	c.mu.Lock()
	quotes := c.quotes.snapshot()
	c.sink.OnQuoteSync(schema.QuoteSync{Quotes: c.quotes.snapshot()})
	c.mu.Unlock()
	logx.Ctx(ctx).Debug("coordinator quotes resync", "quotes", len(quotes))
	return quotes
}

func (c *Coordinator) broadcastQuotesLocked() int {
	quotes := c.quotes.snapshot()
	c.sink.OnQuoteSync(schema.QuoteSync{Quotes: quotes})
	return len(quotes)
}
