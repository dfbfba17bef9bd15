package events

import (
	"context"
	"testing"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/interfaces"
)

// TestNewLoggerSubscriber verifies that the logger subscriber logs events
func TestNewLoggerSubscriber(t *testing.T) {
	logger := arbor.NewLogger()
	subscriber := NewLoggerSubscriber(logger)

	// Event with a structured payload
	ctx := context.Background()
	event := interfaces.Event{
		Type: interfaces.EventRunProgress,
		Payload: map[string]interface{}{
			"run_id": "run-123",
			"line":   "PROGRESS|2|10|40",
		},
	}

	if err := subscriber(ctx, event); err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}

	// Event without payload
	event2 := interfaces.Event{
		Type:    interfaces.EventCatalogReloaded,
		Payload: nil,
	}

	if err := subscriber(ctx, event2); err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
}

// TestSubscribeLoggerToAllEvents verifies subscription across event types
func TestSubscribeLoggerToAllEvents(t *testing.T) {
	logger := arbor.NewLogger()
	eventService := NewService(logger)
	defer eventService.Close()

	if err := SubscribeLoggerToAllEvents(eventService, logger); err != nil {
		t.Fatalf("SubscribeLoggerToAllEvents failed: %v", err)
	}

	ctx := context.Background()
	eventTypes := []interfaces.EventType{
		interfaces.EventCatalogReloaded,
		interfaces.EventRunStarted,
		interfaces.EventRunProgress,
		interfaces.EventRunCompleted,
		interfaces.EventRunFailed,
		interfaces.EventStatusChanged,
	}

	for _, eventType := range eventTypes {
		event := interfaces.Event{
			Type:    eventType,
			Payload: map[string]interface{}{"run_id": "run-456"},
		}

		if err := eventService.Publish(ctx, event); err != nil {
			t.Errorf("Expected no error publishing %s event, got: %v", eventType, err)
		}
	}
}

// TestLoggerSubscriberDoesNotInterfere verifies the logger subscriber leaves other handlers untouched
func TestLoggerSubscriberDoesNotInterfere(t *testing.T) {
	logger := arbor.NewLogger()
	eventService := NewService(logger)
	defer eventService.Close()

	if err := SubscribeLoggerToAllEvents(eventService, logger); err != nil {
		t.Fatalf("SubscribeLoggerToAllEvents failed: %v", err)
	}

	// Add a custom handler that tracks calls
	callCount := 0
	customHandler := func(ctx context.Context, event interfaces.Event) error {
		callCount++
		return nil
	}

	if err := eventService.Subscribe(interfaces.EventRunCompleted, customHandler); err != nil {
		t.Fatalf("Failed to subscribe custom handler: %v", err)
	}

	ctx := context.Background()
	event := interfaces.Event{
		Type: interfaces.EventRunCompleted,
		Payload: map[string]interface{}{
			"run_id": "run-789",
		},
	}

	if err := eventService.PublishSync(ctx, event); err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}

	// Verify custom handler was called
	if callCount != 1 {
		t.Errorf("Expected custom handler to be called once, got: %d", callCount)
	}
}
