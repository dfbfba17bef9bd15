package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/interfaces"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	eventService := NewService(arbor.NewLogger())
	defer eventService.Close()

	var wg sync.WaitGroup
	wg.Add(2)

	var mu sync.Mutex
	var got []string

	handler := func(name string) interfaces.EventHandler {
		return func(ctx context.Context, event interfaces.Event) error {
			mu.Lock()
			got = append(got, name)
			mu.Unlock()
			wg.Done()
			return nil
		}
	}

	if err := eventService.Subscribe(interfaces.EventRunStarted, handler("first")); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if err := eventService.Subscribe(interfaces.EventRunStarted, handler("second")); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	err := eventService.Publish(context.Background(), interfaces.Event{
		Type:    interfaces.EventRunStarted,
		Payload: map[string]interface{}{"run_id": "run-1"},
	})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Handlers were not invoked")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Errorf("Expected 2 handler invocations, got %d", len(got))
	}
}

func TestPublishIgnoresOtherEventTypes(t *testing.T) {
	eventService := NewService(arbor.NewLogger())
	defer eventService.Close()

	called := false
	err := eventService.Subscribe(interfaces.EventRunCompleted, func(ctx context.Context, event interfaces.Event) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	err = eventService.PublishSync(context.Background(), interfaces.Event{
		Type: interfaces.EventRunFailed,
	})
	if err != nil {
		t.Fatalf("PublishSync failed: %v", err)
	}
	if called {
		t.Error("Handler received an event type it never subscribed to")
	}
}

func TestSubscribeNilHandler(t *testing.T) {
	eventService := NewService(arbor.NewLogger())
	defer eventService.Close()

	if err := eventService.Subscribe(interfaces.EventRunStarted, nil); err == nil {
		t.Error("Expected error subscribing nil handler")
	}
}

func TestUnsubscribe(t *testing.T) {
	eventService := NewService(arbor.NewLogger())
	defer eventService.Close()

	calls := 0
	handler := func(ctx context.Context, event interfaces.Event) error {
		calls++
		return nil
	}

	if err := eventService.Subscribe(interfaces.EventStatusChanged, handler); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if err := eventService.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventStatusChanged}); err != nil {
		t.Fatalf("PublishSync failed: %v", err)
	}

	if err := eventService.Unsubscribe(interfaces.EventStatusChanged, handler); err != nil {
		t.Fatalf("Unsubscribe failed: %v", err)
	}
	if err := eventService.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventStatusChanged}); err != nil {
		t.Fatalf("PublishSync failed: %v", err)
	}

	if calls != 1 {
		t.Errorf("Expected 1 call before unsubscribe, got %d", calls)
	}

	// Unsubscribing twice reports the missing handler
	if err := eventService.Unsubscribe(interfaces.EventStatusChanged, handler); err == nil {
		t.Error("Expected error unsubscribing an unknown handler")
	}
}

func TestPublishSyncCollectsHandlerErrors(t *testing.T) {
	eventService := NewService(arbor.NewLogger())
	defer eventService.Close()

	failing := func(ctx context.Context, event interfaces.Event) error {
		return context.DeadlineExceeded
	}
	if err := eventService.Subscribe(interfaces.EventRunFailed, failing); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	err := eventService.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventRunFailed})
	if err == nil {
		t.Error("Expected PublishSync to surface handler error")
	}
}

func TestCloseDropsSubscribers(t *testing.T) {
	eventService := NewService(arbor.NewLogger())

	called := false
	if err := eventService.Subscribe(interfaces.EventRunStarted, func(ctx context.Context, event interfaces.Event) error {
		called = true
		return nil
	}); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := eventService.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := eventService.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventRunStarted}); err != nil {
		t.Fatalf("PublishSync after close failed: %v", err)
	}
	if called {
		t.Error("Handler invoked after Close")
	}
}
