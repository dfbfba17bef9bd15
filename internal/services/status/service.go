package status

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
)

// AppState represents the application state
type AppState string

const (
	StateIdle       AppState = "idle"
	StateRetrieving AppState = "retrieving"
	StateOffline    AppState = "offline"
)

// Service manages application status
type Service struct {
	state        AppState
	mu           sync.RWMutex
	eventService interfaces.EventService
	logger       arbor.ILogger
	metadata     map[string]interface{}
	activeRuns   map[string]bool
}

// NewService creates a new StatusService
func NewService(eventService interfaces.EventService, logger arbor.ILogger) *Service {
	return &Service{
		state:        StateIdle,
		eventService: eventService,
		logger:       logger,
		metadata:     make(map[string]interface{}),
		activeRuns:   make(map[string]bool),
	}
}

// GetState returns the current application state (thread-safe)
func (s *Service) GetState() AppState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// SetState updates the application state and broadcasts the change
func (s *Service) SetState(state AppState, metadata map[string]interface{}) {
	s.mu.Lock()
	oldState := s.state
	s.state = state
	if metadata != nil {
		s.metadata = metadata
	} else {
		s.metadata = make(map[string]interface{})
	}
	s.mu.Unlock()

	if oldState != state {
		s.logger.Info().
			Str("old_state", string(oldState)).
			Str("new_state", string(state)).
			Msg("Application state changed")
	}

	if s.eventService != nil {
		event := interfaces.Event{
			Type: interfaces.EventStatusChanged,
			Payload: map[string]interface{}{
				"state":     string(state),
				"metadata":  metadata,
				"timestamp": time.Now(),
			},
		}
		s.eventService.Publish(context.Background(), event)
	}
}

// GetStatus returns the full status including state, metadata, and timestamp
func (s *Service) GetStatus() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Deep copy metadata to avoid concurrent modification
	metadataCopy := make(map[string]interface{})
	for k, v := range s.metadata {
		metadataCopy[k] = v
	}

	return map[string]interface{}{
		"state":       string(s.state),
		"active_runs": s.activeRunCount(),
		"metadata":    metadataCopy,
		"timestamp":   time.Now(),
	}
}

// SubscribeToRunEvents subscribes to run lifecycle events so the state
// tracks retrieval activity automatically
func (s *Service) SubscribeToRunEvents() {
	if s.eventService == nil {
		s.logger.Warn().Msg("Cannot subscribe to run events - eventService is nil")
		return
	}

	s.eventService.Subscribe(interfaces.EventRunStarted, func(ctx context.Context, event interfaces.Event) error {
		run := runFromPayload(event.Payload)
		if run == nil {
			return nil
		}

		s.mu.Lock()
		s.activeRuns[run.ID] = true
		active := len(s.activeRuns)
		s.mu.Unlock()

		s.SetState(StateRetrieving, map[string]interface{}{
			"active_run_id": run.ID,
			"company":       run.Company,
			"active_runs":   active,
		})
		return nil
	})

	terminal := func(ctx context.Context, event interfaces.Event) error {
		run := runFromPayload(event.Payload)
		if run == nil {
			return nil
		}

		s.mu.Lock()
		delete(s.activeRuns, run.ID)
		active := len(s.activeRuns)
		s.mu.Unlock()

		if active == 0 {
			s.SetState(StateIdle, nil)
		}
		return nil
	}
	s.eventService.Subscribe(interfaces.EventRunCompleted, terminal)
	s.eventService.Subscribe(interfaces.EventRunFailed, terminal)

	s.logger.Info().Msg("StatusService subscribed to run events")
}

func (s *Service) activeRunCount() int {
	return len(s.activeRuns)
}

// runFromPayload unpacks the run snapshot carried on lifecycle events
func runFromPayload(payload interface{}) *models.Run {
	data, ok := payload.(map[string]interface{})
	if !ok {
		return nil
	}
	run, ok := data["run"].(*models.Run)
	if !ok {
		return nil
	}
	return run
}
