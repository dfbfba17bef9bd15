package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
	"golang.org/x/time/rate"
)

// EventSubscriber bridges the event bus to WebSocket broadcasts. Progress
// lines are throttled per run so a fast local mirror cannot flood clients;
// lifecycle and terminal lines always go through.
type EventSubscriber struct {
	handler          *WebSocketHandler
	eventService     interfaces.EventService
	logger           arbor.ILogger
	progressInterval time.Duration
	mu               sync.Mutex
	runThrottlers    map[string]*rate.Limiter
}

// NewEventSubscriber creates an event subscriber and registers it for all
// run lifecycle and status events
func NewEventSubscriber(handler *WebSocketHandler, eventService interfaces.EventService, logger arbor.ILogger, config *common.WebSocketConfig) *EventSubscriber {
	if logger == nil {
		logger = common.GetLogger()
	}
	s := &EventSubscriber{
		handler:          handler,
		eventService:     eventService,
		logger:           logger,
		progressInterval: time.Second,
		runThrottlers:    make(map[string]*rate.Limiter),
	}

	if config != nil && config.ProgressThrottle != "" {
		if duration, err := time.ParseDuration(config.ProgressThrottle); err == nil {
			s.progressInterval = duration
		} else {
			logger.Warn().
				Err(err).
				Str("interval", config.ProgressThrottle).
				Msg("Failed to parse progress throttle interval - using 1s")
		}
	}

	if eventService == nil {
		logger.Warn().Msg("EventSubscriber created with nil eventService - subscriptions will be skipped")
		return s
	}

	s.SubscribeAll()
	return s
}

// SubscribeAll registers subscriptions for run lifecycle and status events
func (s *EventSubscriber) SubscribeAll() {
	if s.eventService == nil {
		s.logger.Warn().Msg("Cannot subscribe to events - eventService is nil")
		return
	}

	s.eventService.Subscribe(interfaces.EventRunStarted, s.handleRunStarted)
	s.eventService.Subscribe(interfaces.EventRunProgress, s.handleRunProgress)
	s.eventService.Subscribe(interfaces.EventRunCompleted, s.handleRunTerminal("run_completed"))
	s.eventService.Subscribe(interfaces.EventRunFailed, s.handleRunTerminal("run_failed"))
	s.eventService.Subscribe(interfaces.EventStatusChanged, s.handleStatusChanged)
	s.eventService.Subscribe(interfaces.EventCatalogReloaded, s.handleCatalogReloaded)

	s.logger.Debug().Msg("EventSubscriber registered for run lifecycle events")
}

func (s *EventSubscriber) handleRunStarted(ctx context.Context, event interfaces.Event) error {
	data, ok := event.Payload.(map[string]interface{})
	if !ok {
		return nil
	}

	runID, _ := data["run_id"].(string)
	if runID != "" {
		s.mu.Lock()
		s.runThrottlers[runID] = rate.NewLimiter(rate.Every(s.progressInterval), 1)
		s.mu.Unlock()
	}

	s.handler.Broadcast(WSMessage{Type: "run_started", Payload: map[string]interface{}{
		"run_id": runID,
		"run":    data["run"],
	}})
	s.handler.BroadcastStatus()
	return nil
}

func (s *EventSubscriber) handleRunProgress(ctx context.Context, event interfaces.Event) error {
	data, ok := event.Payload.(map[string]interface{})
	if !ok {
		return nil
	}

	runID, _ := data["run_id"].(string)
	if ev, ok := data["event"].(models.ProgressEvent); ok && ev.Kind == models.ProgressKindProgress {
		if !s.allowProgress(runID) {
			return nil
		}
	}

	s.handler.Broadcast(WSMessage{Type: "run_event", Payload: map[string]interface{}{
		"run_id": runID,
		"line":   data["line"],
		"event":  data["event"],
	}})
	return nil
}

// handleRunTerminal builds a handler for completed and failed runs; both
// broadcast the final run snapshot and release the run's throttler.
func (s *EventSubscriber) handleRunTerminal(messageType string) interfaces.EventHandler {
	return func(ctx context.Context, event interfaces.Event) error {
		data, ok := event.Payload.(map[string]interface{})
		if !ok {
			return nil
		}

		runID, _ := data["run_id"].(string)
		if runID != "" {
			s.mu.Lock()
			delete(s.runThrottlers, runID)
			s.mu.Unlock()
		}

		s.handler.Broadcast(WSMessage{Type: messageType, Payload: map[string]interface{}{
			"run_id": runID,
			"run":    data["run"],
		}})
		s.handler.BroadcastStatus()
		return nil
	}
}

func (s *EventSubscriber) handleStatusChanged(ctx context.Context, event interfaces.Event) error {
	s.handler.BroadcastStatus()
	return nil
}

func (s *EventSubscriber) handleCatalogReloaded(ctx context.Context, event interfaces.Event) error {
	s.handler.Broadcast(WSMessage{Type: "catalog_reloaded", Payload: event.Payload})
	return nil
}

// allowProgress consults the run's rate limiter. Unknown runs pass; the
// limiter only exists between run_started and the terminal event.
func (s *EventSubscriber) allowProgress(runID string) bool {
	s.mu.Lock()
	limiter, ok := s.runThrottlers[runID]
	s.mu.Unlock()
	if !ok {
		return true
	}
	return limiter.Allow()
}
