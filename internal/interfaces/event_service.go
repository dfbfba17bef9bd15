package interfaces

import "context"

// EventType names the bus topics the engine publishes on.
type EventType string

const (
	EventCatalogReloaded EventType = "catalog_reloaded"
	EventRunStarted      EventType = "run_started"
	EventRunProgress     EventType = "run_progress"
	EventRunCompleted    EventType = "run_completed"
	EventRunFailed       EventType = "run_failed"
	EventStatusChanged   EventType = "status_changed"
)

// Event carries a topic and an arbitrary payload. Run events put the
// run ID and counters in the payload map.
type Event struct {
	Type    EventType
	Payload interface{}
}

// EventHandler consumes one event. Errors only surface through
// PublishSync; asynchronous delivery logs them and moves on.
type EventHandler func(ctx context.Context, event Event) error

// EventService is the in-process pub/sub bus linking the run engine to
// the status tracker and the push transports.
type EventService interface {
	// Subscribe registers handler for eventType.
	Subscribe(eventType EventType, handler EventHandler) error

	// Unsubscribe removes a previously registered handler.
	Unsubscribe(eventType EventType, handler EventHandler) error

	// Publish delivers event to every subscriber without waiting on them.
	Publish(ctx context.Context, event Event) error

	// PublishSync delivers event and waits for every handler, collecting
	// their errors.
	PublishSync(ctx context.Context, event Event) error

	// Close drops all subscriptions.
	Close() error
}
