package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/webchat/internal/logx"
	"pkt.systems/webchat/schema"
)

// Coordinator relays actions and quotes from producers to the single consumer.
// It owns the action queue, the readiness state machine and the quote list.
type Coordinator struct {
	cfg    schema.CoordinatorConfig
	sink   EventSink
	opener ConsumerOpener
	clock  Clock
	logger pslog.Logger
	tools  *toolRegistry

	mu         sync.Mutex
	readiness  *readinessTracker
	queue      *actionQueue
	quotes     *quoteList
	delivered  *deliveredIDs
	last       *lastDelivery
	forced     uint64
	deliveries uint64
}

type lastDelivery struct {
	payload schema.ActionPayload
	at      time.Time
}

// NewCoordinator constructs a coordinator with the provided config and collaborators.
func NewCoordinator(cfg schema.CoordinatorConfig, deps Deps) (*Coordinator, error) {
	normalized, err := schema.NormalizeCoordinatorConfig(cfg)
	if err != nil {
		return nil, err
	}
	if deps.Sink == nil {
		deps.Sink = noopSink{}
	}
	if deps.Clock == nil {
		deps.Clock = realClock{}
	}
	if deps.Store == nil {
		deps.Store = NewMemoryStore()
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	c := &Coordinator{
		cfg:       normalized,
		sink:      deps.Sink,
		opener:    deps.Opener,
		clock:     deps.Clock,
		logger:    logger,
		queue:     newActionQueue(),
		quotes:    newQuoteList(),
		delivered: newDeliveredIDs(normalized.DeliveredIDMemory),
	}
	c.readiness = newReadinessTracker(deps.Clock, normalized.OpenTimeout, c.expireOpen)
	c.tools = newToolRegistry(deps.Store, deps.Sink, logger)
	return c, nil
}

// Config returns the normalized coordinator config.
func (c *Coordinator) Config() schema.CoordinatorConfig {
	return c.cfg
}

// RequestAction accepts an action from a producer. It delivers immediately when
// the consumer is ready, otherwise queues the action and asks for the consumer
// to be opened. Only validation failures are returned as errors.
func (c *Coordinator) RequestAction(ctx context.Context, producer schema.ProducerID, payload schema.ActionPayload, id schema.ActionID) (schema.ActionOutcome, schema.ActionID, error) {
	if ctx == nil {
		return "", "", errors.New("missing context")
	}
	log := logx.WithProducer(ctx, producer)
	if err := schema.ValidateActionPayload(payload); err != nil {
		log.Debug("coordinator action rejected", "err", err)
		return "", "", err
	}
	id, err := schema.NormalizeActionID(id)
	if err != nil {
		log.Debug("coordinator action rejected", "err", err)
		return "", "", err
	}

	c.mu.Lock()
	now := c.clock.Now()
	if id == "" {
		id = newActionID(now)
	}
	log = logx.WithAction(log, id)
	if c.queue.contains(id) || c.delivered.hasSeen(id) {
		c.mu.Unlock()
		log.Debug("coordinator action ignored", "err", schema.ErrDuplicateAction)
		return schema.OutcomeDuplicate, id, nil
	}
	if c.debouncedLocked(payload, now) {
		c.mu.Unlock()
		log.Debug("coordinator action debounced", "window", c.cfg.DebounceWindow)
		return schema.OutcomeDebounced, id, nil
	}
	action := schema.Action{ID: id, Payload: payload, EnqueuedAt: now}
	if c.readiness.ready() {
		c.deliverLocked(action, false)
		c.mu.Unlock()
		log.Info("coordinator action delivered")
		return schema.OutcomeDelivered, id, nil
	}
	c.queue.enqueue(action)
	open, issued := c.requestOpenLocked(producer)
	if !issued {
		c.readiness.ensureArmed()
	}
	queued := c.queue.size()
	state := c.readiness.state
	c.mu.Unlock()

	log.Info("coordinator action queued", "state", state, "queue", queued)
	if issued {
		c.openConsumer(ctx, open)
	}
	return schema.OutcomeQueued, id, nil
}

// RequestOpen asks for the consumer to be opened unless it is already opening or ready.
func (c *Coordinator) RequestOpen(ctx context.Context, producer schema.ProducerID) schema.ConsumerState {
	if ctx == nil {
		ctx = context.Background()
	}
	c.mu.Lock()
	open, issued := c.requestOpenLocked(producer)
	state := c.readiness.state
	c.mu.Unlock()

	if issued {
		c.openConsumer(ctx, open)
	} else {
		logx.WithProducer(ctx, producer).Debug("coordinator open skipped", "state", state)
	}
	return state
}

// OnConsumerReady marks the consumer ready and flushes the queue in arrival order.
func (c *Coordinator) OnConsumerReady(ctx context.Context) int {
	if ctx == nil {
		ctx = context.Background()
	}
	c.mu.Lock()
	changed := c.readiness.markReady()
	drained := c.queue.drainInOrder()
	for _, action := range drained {
		c.deliverLocked(action, false)
	}
	c.mu.Unlock()

	log := logx.Ctx(ctx)
	if changed {
		log.Info("coordinator consumer ready", "flushed", len(drained))
	} else {
		log.Debug("coordinator consumer ready again", "flushed", len(drained))
	}
	return len(drained)
}

// OnConsumerClosed marks the consumer closed. Queued actions are kept for the next open.
func (c *Coordinator) OnConsumerClosed(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.mu.Lock()
	prev := c.readiness.markClosed()
	queued := c.queue.size()
	c.mu.Unlock()
	logx.Ctx(ctx).Info("coordinator consumer closed", "previous", prev, "queue", queued)
}

// OnOpenTimeout force-delivers every queued action as best effort.
func (c *Coordinator) OnOpenTimeout(ctx context.Context) int {
	if ctx == nil {
		ctx = context.Background()
	}
	c.mu.Lock()
	c.readiness.disarm()
	flushed := c.forceFlushLocked()
	c.mu.Unlock()
	logx.Ctx(ctx).Warn("coordinator forced flush", "err", schema.ErrDeliveryTimeout, "flushed", flushed)
	return flushed
}

// expireOpen is the open-timeout timer callback. A timer belonging to an
// earlier attempt, or one that lost the race against markReady/markClosed, is a no-op.
func (c *Coordinator) expireOpen(generation uint64) {
	c.mu.Lock()
	if !c.readiness.expire(generation) {
		c.mu.Unlock()
		return
	}
	flushed := c.forceFlushLocked()
	c.mu.Unlock()
	c.logger.Warn("coordinator open timed out", "err", schema.ErrDeliveryTimeout, "flushed", flushed, "generation", generation)
}

// State returns the current consumer state.
func (c *Coordinator) State() schema.ConsumerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readiness.state
}

// QueueSize returns the number of actions awaiting delivery.
func (c *Coordinator) QueueSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.size()
}

// Status returns a point-in-time snapshot for health reporting.
func (c *Coordinator) Status() schema.CoordinatorStatus {
	tools := c.tools.count()
	c.mu.Lock()
	defer c.mu.Unlock()
	status := schema.CoordinatorStatus{
		State:          c.readiness.state,
		QueueSize:      c.queue.size(),
		PendingActions: c.queue.ids(),
		Quotes:         c.quotes.len(),
		Tools:          tools,
		OpenAttempts:   c.readiness.attempts,
		ForcedFlushes:  c.forced,
		Delivered:      c.deliveries,
		TimerArmed:     c.readiness.armed(),
	}
	if c.last != nil {
		status.LastDelivery = c.last.at
	}
	return status
}

func (c *Coordinator) requestOpenLocked(producer schema.ProducerID) (schema.OpenRequest, bool) {
	if !c.readiness.requestOpen() {
		return schema.OpenRequest{}, false
	}
	req := schema.OpenRequest{Producer: producer, Attempt: c.readiness.attempts}
	c.sink.OnConsumerOpen(req)
	return req, true
}

func (c *Coordinator) openConsumer(ctx context.Context, req schema.OpenRequest) {
	log := logx.WithProducer(ctx, req.Producer)
	log.Info("coordinator consumer open requested", "attempt", req.Attempt)
	if c.opener == nil {
		return
	}
	if err := c.opener.OpenConsumer(context.WithoutCancel(ctx), req); err != nil {
		log.Warn("coordinator consumer open failed", "attempt", req.Attempt, "err", err)
	}
}

func (c *Coordinator) debouncedLocked(payload schema.ActionPayload, now time.Time) bool {
	window := c.cfg.DebounceWindow
	if window <= 0 {
		return false
	}
	if c.last != nil && c.last.payload == payload && now.Sub(c.last.at) < window {
		return true
	}
	return c.queue.hasPayloadAfter(payload, now.Add(-window))
}

func (c *Coordinator) forceFlushLocked() int {
	drained := c.queue.drainInOrder()
	c.forced++
	for _, action := range drained {
		c.deliverLocked(action, true)
	}
	return len(drained)
}

func (c *Coordinator) deliverLocked(action schema.Action, bestEffort bool) {
	c.queue.removeIfPresent(action.ID)
	c.delivered.markSeen(action.ID)
	c.last = &lastDelivery{payload: action.Payload, at: c.clock.Now()}
	c.deliveries++
	c.sink.OnActionDeliver(schema.ActionDelivery{Action: action, BestEffort: bestEffort})
}
