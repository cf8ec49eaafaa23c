package schema

import "errors"

var (
	// ErrInvalidRequest indicates a malformed request payload.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidAction indicates an action with missing or empty text or prompt.
	ErrInvalidAction = errors.New("invalid action: text and prompt are required")
	// ErrDuplicateAction marks an action ignored because its id was already seen.
	ErrDuplicateAction = errors.New("duplicate action ignored")
	// ErrDeliveryTimeout marks a force-flush after the consumer failed to confirm readiness.
	ErrDeliveryTimeout = errors.New("consumer open timed out")
	// ErrConsumerUnavailable indicates a delivery with nobody listening.
	ErrConsumerUnavailable = errors.New("consumer unavailable")
	// ErrInvalidQuote indicates an empty quote text.
	ErrInvalidQuote = errors.New("invalid quote")
	// ErrInvalidTool indicates a tool without a name or prompt.
	ErrInvalidTool = errors.New("invalid tool")
	// ErrToolNotFound indicates a requested tool could not be found.
	ErrToolNotFound = errors.New("tool not found")
	// ErrUnknownMessage indicates an inbound message kind the relay does not handle.
	ErrUnknownMessage = errors.New("unknown message kind")
)
