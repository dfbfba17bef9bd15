package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
)

const (
	// DefaultRunRetention keeps terminal runs queryable before the
	// janitor drops them.
	DefaultRunRetention = time.Hour

	// eventBuffer sizes each run's progress channel so producers never
	// block on an absent consumer. A disclosure page yields at most a
	// few hundred documents, far under this.
	eventBuffer = 4096

	janitorInterval = 5 * time.Minute
)

// runState couples a run's snapshot with its event channel and cancel
// handle. The channel has a single consumer and is closed after the
// terminal event.
type runState struct {
	run    *models.Run
	events chan models.ProgressEvent
	cancel context.CancelFunc
}

// Service is the run controller: it owns run lifecycles from request
// through planning, dispatch, and retention of the finished record.
type Service struct {
	discovery    interfaces.DiscoveryService
	eventService interfaces.EventService
	dispatcher   *Dispatcher
	logger       arbor.ILogger
	retention    time.Duration

	mu   sync.RWMutex
	runs map[string]*runState

	wg            sync.WaitGroup
	janitorTicker *time.Ticker
	janitorStop   chan struct{}
}

// NewService creates a new retrieval service
func NewService(discovery interfaces.DiscoveryService, eventService interfaces.EventService, dispatcher *Dispatcher, config *common.RetrievalConfig, logger arbor.ILogger) *Service {
	retention := DefaultRunRetention
	if config != nil {
		retention = common.ParseDurationOr(config.RunRetention, DefaultRunRetention)
	}

	return &Service{
		discovery:    discovery,
		eventService: eventService,
		dispatcher:   dispatcher,
		logger:       logger,
		retention:    retention,
		runs:         make(map[string]*runState),
	}
}

// Start launches the retention janitor
func (s *Service) Start() {
	s.janitorTicker = time.NewTicker(janitorInterval)
	s.janitorStop = make(chan struct{})

	common.SafeGo(s.logger, "runJanitor", func() {
		for {
			select {
			case <-s.janitorStop:
				return
			case <-s.janitorTicker.C:
				s.pruneExpiredRuns()
			}
		}
	})
}

// StartRun validates the request and begins an asynchronous run. The
// run outlives the calling request; its lifetime is bound to the
// service, not to ctx.
func (s *Service) StartRun(ctx context.Context, req *models.RunRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", fmt.Errorf("invalid run request: %w", err)
	}

	run := &models.Run{
		ID:        uuid.New().String(),
		Company:   req.CompanyName,
		Symbol:    strings.ToUpper(req.Symbol),
		StartYear: req.StartYear,
		EndYear:   req.EndYear,
		Status:    models.RunStatusPending,
		CreatedAt: time.Now(),
	}

	runCtx, cancel := context.WithCancel(context.Background())
	state := &runState{
		run:    run,
		events: make(chan models.ProgressEvent, eventBuffer),
		cancel: cancel,
	}

	s.mu.Lock()
	s.runs[run.ID] = state
	s.mu.Unlock()

	s.logger.Info().
		Str("run_id", run.ID).
		Str("company", run.Company).
		Str("symbol", run.Symbol).
		Int("start_year", run.StartYear).
		Int("end_year", run.EndYear).
		Msg("Retrieval run started")

	s.wg.Add(1)
	common.SafeGo(s.logger, "retrievalRun", func() {
		defer s.wg.Done()
		defer cancel()
		s.runWorker(runCtx, state, req)
	})

	return run.ID, nil
}

// runWorker drives one run: page fetch and planning, then dispatch.
// A page failure short-circuits to a terminal ERROR without planning
// or dispatching.
func (s *Service) runWorker(ctx context.Context, state *runState, req *models.RunRequest) {
	defer close(state.events)

	run := state.run

	s.setRunStarted(run)
	s.publishRunEvent(interfaces.EventRunStarted, run)

	s.emit(state, models.StatusEvent(fmt.Sprintf("Fetching data for %s...", run.Company)))

	company := &models.Company{
		ID:      req.CompanyID,
		Name:    req.CompanyName,
		NSECode: run.Symbol,
	}

	plan, err := s.discovery.BuildPlan(ctx, company, run.StartYear, run.EndYear)
	if err != nil {
		s.emit(state, models.ErrorEvent(fmt.Sprintf("Connection failed: %v", err)))
		s.setRunFailed(run, err)
		s.publishRunEvent(interfaces.EventRunFailed, run)
		return
	}

	s.setRunPlanned(run, plan)

	summary, failures, err := s.dispatcher.Run(ctx, plan, func(ev models.ProgressEvent) {
		s.emit(state, ev)
	})
	if err != nil {
		s.emit(state, models.ErrorEvent("Run cancelled"))
		s.setRunCancelled(run, summary, failures)
		s.publishRunEvent(interfaces.EventRunFailed, run)
		return
	}

	s.setRunCompleted(run, summary, failures)
	s.publishRunEvent(interfaces.EventRunCompleted, run)
}

// emit hands an event to the run's channel, folds it into the run
// snapshot, and forwards it to the event bus for broadcast.
func (s *Service) emit(state *runState, ev models.ProgressEvent) {
	select {
	case state.events <- ev:
	default:
		s.logger.Warn().
			Str("run_id", state.run.ID).
			Str("event", ev.Wire()).
			Msg("Progress buffer full, event dropped")
	}

	s.mu.Lock()
	switch ev.Kind {
	case models.ProgressKindTotal:
		state.run.Total = ev.Total
	case models.ProgressKindProgress:
		state.run.Completed = ev.Completed
		state.run.Total = ev.Total
	}
	s.mu.Unlock()

	if s.eventService != nil {
		s.eventService.Publish(context.Background(), interfaces.Event{
			Type: interfaces.EventRunProgress,
			Payload: map[string]interface{}{
				"run_id": state.run.ID,
				"line":   ev.Wire(),
				"event":  ev,
			},
		})
	}
}

// GetRun returns a snapshot of the run
func (s *Service) GetRun(id string) (*models.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return snapshotRun(state.run), nil
}

// ListRuns returns all known runs, newest first
func (s *Service) ListRuns() []*models.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]*models.Run, 0, len(s.runs))
	for _, state := range s.runs {
		runs = append(runs, snapshotRun(state.run))
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	return runs
}

// CancelRun stops an in-flight run
func (s *Service) CancelRun(id string) error {
	s.mu.RLock()
	state, ok := s.runs[id]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}

	s.mu.RLock()
	terminal := state.run.IsTerminal()
	s.mu.RUnlock()
	if terminal {
		return fmt.Errorf("%w: %s", ErrRunFinished, id)
	}

	state.cancel()
	s.logger.Info().Str("run_id", id).Msg("Run cancellation requested")
	return nil
}

// Events returns the run's progress channel
func (s *Service) Events(id string) (<-chan models.ProgressEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return state.events, nil
}

// Shutdown cancels in-flight runs and waits for workers to drain
func (s *Service) Shutdown(ctx context.Context) error {
	if s.janitorTicker != nil {
		s.janitorTicker.Stop()
		close(s.janitorStop)
	}

	s.mu.RLock()
	for _, state := range s.runs {
		state.cancel()
	}
	s.mu.RUnlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("shutdown timed out waiting for runs: %w", ctx.Err())
	case <-done:
		s.logger.Info().Msg("Retrieval service stopped")
		return nil
	}
}

// pruneExpiredRuns drops terminal runs past the retention window
func (s *Service) pruneExpiredRuns() {
	cutoff := time.Now().Add(-s.retention)

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, state := range s.runs {
		run := state.run
		if !run.IsTerminal() || run.FinishedAt == nil {
			continue
		}
		if run.FinishedAt.Before(cutoff) {
			delete(s.runs, id)
			s.logger.Debug().Str("run_id", id).Msg("Expired run pruned")
		}
	}
}

func (s *Service) setRunStarted(run *models.Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	run.Status = models.RunStatusRunning
	run.StartedAt = &now
}

func (s *Service) setRunPlanned(run *models.Run, plan *models.RunPlan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run.Total = len(plan.Tasks)
	run.ArchiveRoot = plan.ArchiveRoot
}

func (s *Service) setRunFailed(run *models.Run, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	run.Status = models.RunStatusFailed
	run.Error = err.Error()
	run.FinishedAt = &now
}

func (s *Service) setRunCancelled(run *models.Run, summary *models.RunSummary, failures []models.TaskFailure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	run.Status = models.RunStatusCancelled
	if summary != nil {
		run.Completed = summary.Completed
	}
	run.Failures = failures
	run.FinishedAt = &now
}

func (s *Service) setRunCompleted(run *models.Run, summary *models.RunSummary, failures []models.TaskFailure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	run.Status = models.RunStatusCompleted
	run.Completed = summary.Completed
	run.Total = summary.Total
	run.ArchiveRoot = summary.ArchiveRoot
	run.Failures = failures
	run.FinishedAt = &now
}

// publishRunEvent forwards a lifecycle change to the event bus
func (s *Service) publishRunEvent(eventType interfaces.EventType, run *models.Run) {
	if s.eventService == nil {
		return
	}

	s.mu.RLock()
	snapshot := snapshotRun(run)
	s.mu.RUnlock()

	s.eventService.Publish(context.Background(), interfaces.Event{
		Type: eventType,
		Payload: map[string]interface{}{
			"run_id":    snapshot.ID,
			"run":       snapshot,
			"timestamp": time.Now(),
		},
	})
}

// snapshotRun copies a run for handing outside the lock
func snapshotRun(run *models.Run) *models.Run {
	copied := *run
	if run.Failures != nil {
		copied.Failures = make([]models.TaskFailure, len(run.Failures))
		copy(copied.Failures, run.Failures)
	}
	return &copied
}
