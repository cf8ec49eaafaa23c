package schema

import "time"

// ActionID is the idempotency key of an action.
type ActionID string

// QuoteID identifies a captured quote.
type QuoteID string

// ToolID identifies a custom selection tool.
type ToolID string

// ProducerID identifies the producer (content script, CLI, ...) that sent a message.
type ProducerID string

// ConsumerState tracks whether the single consumer can receive deliveries.
type ConsumerState string

const (
	// ConsumerUnknown is the initial state; no consumer contacted yet.
	ConsumerUnknown ConsumerState = "unknown"
	// ConsumerOpening means an open request was issued and not yet confirmed.
	ConsumerOpening ConsumerState = "opening"
	// ConsumerReady means deliveries are immediate.
	ConsumerReady ConsumerState = "ready"
	// ConsumerClosed means the consumer signaled teardown.
	ConsumerClosed ConsumerState = "closed"
)

func (s ConsumerState) String() string {
	if s == "" {
		return string(ConsumerUnknown)
	}
	return string(s)
}

// ActionPayload is the text to act on and the instruction to apply.
type ActionPayload struct {
	Text   string `json:"text"`
	Prompt string `json:"prompt"`
}

// Content renders the payload as the chat message the consumer sends.
func (p ActionPayload) Content() string {
	return "> " + p.Text + "\n\n" + p.Prompt
}

// Action is a unit of work destined for the consumer.
type Action struct {
	ID         ActionID      `json:"action_id"`
	Payload    ActionPayload `json:"payload"`
	EnqueuedAt time.Time     `json:"-"`
}

// ActionOutcome reports what happened to a requested action.
type ActionOutcome string

const (
	// OutcomeDelivered means the action was sent to a ready consumer.
	OutcomeDelivered ActionOutcome = "delivered"
	// OutcomeQueued means the action waits for the consumer.
	OutcomeQueued ActionOutcome = "queued"
	// OutcomeDebounced means an identical payload was seen inside the debounce window.
	OutcomeDebounced ActionOutcome = "debounced"
	// OutcomeDuplicate means the action id is already queued or delivered.
	OutcomeDuplicate ActionOutcome = "duplicate"
)

// Quote is an immutable user-selected snippet.
type Quote struct {
	ID   QuoteID `json:"id"`
	Text string  `json:"text"`
}

// Tool is a custom selection tool shown on the producer toolbar.
type Tool struct {
	ID     ToolID `json:"id"`
	Name   string `json:"name"`
	Prompt string `json:"prompt"`
}

// ToolbarSettings controls the producer selection toolbar.
type ToolbarSettings struct {
	Enabled bool `json:"enabled"`
}

// DefaultToolbarSettings is seeded on first start.
func DefaultToolbarSettings() ToolbarSettings {
	return ToolbarSettings{Enabled: true}
}

// CoordinatorStatus is a point-in-time view of coordinator state.
type CoordinatorStatus struct {
	State          ConsumerState `json:"state"`
	QueueSize      int           `json:"queue_size"`
	PendingActions []ActionID    `json:"pending_actions"`
	Quotes         int           `json:"quotes"`
	Tools          int           `json:"tools"`
	OpenAttempts   uint64        `json:"open_attempts"`
	ForcedFlushes  uint64        `json:"forced_flushes"`
	Delivered      uint64        `json:"delivered"`
	LastDelivery   time.Time     `json:"last_delivery,omitempty"`
	TimerArmed     bool          `json:"timer_armed"`
}
