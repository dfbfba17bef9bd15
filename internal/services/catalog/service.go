package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
)

// Service implements CatalogService over the company storage. The
// directory contents come from a listing CSV; Reload re-imports it and
// an optional cron schedule keeps it fresh.
type Service struct {
	storageManager interfaces.StorageManager
	eventService   interfaces.EventService
	config         *common.CatalogConfig
	cron           *cron.Cron
	logger         arbor.ILogger
	mu             sync.Mutex
	running        bool
}

// NewService creates a new catalog service
func NewService(storageManager interfaces.StorageManager, eventService interfaces.EventService, config *common.CatalogConfig, logger arbor.ILogger) interfaces.CatalogService {
	return &Service{
		storageManager: storageManager,
		eventService:   eventService,
		config:         config,
		cron:           cron.New(),
		logger:         logger,
	}
}

// Search returns companies matching the query, capped at the configured limit
func (s *Service) Search(ctx context.Context, query string) ([]*models.Company, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search query is required")
	}
	return s.storageManager.CompanyStorage().SearchCompanies(ctx, query, s.config.SearchLimit)
}

// GetBySymbol returns the company with the given NSE or BSE code
func (s *Service) GetBySymbol(ctx context.Context, symbol string) (*models.Company, error) {
	return s.storageManager.CompanyStorage().GetCompanyBySymbol(ctx, symbol)
}

// Reload clears the directory and re-imports the listing CSV. Each
// import assigns fresh IDs, so the clear keeps the reload idempotent.
func (s *Service) Reload(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storageManager.CompanyStorage().ClearAll(ctx); err != nil {
		return 0, fmt.Errorf("failed to clear company directory: %w", err)
	}

	count, err := s.storageManager.LoadCompaniesFromCSV(ctx, s.config.CSVPath)
	if err != nil {
		return 0, err
	}

	if s.eventService != nil {
		event := interfaces.Event{
			Type: interfaces.EventCatalogReloaded,
			Payload: map[string]interface{}{
				"count":     count,
				"timestamp": time.Now(),
			},
		}
		s.eventService.Publish(ctx, event)
	}

	return count, nil
}

// Count returns the number of companies in the directory
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.storageManager.CompanyStorage().CountCompanies(ctx)
}

// StartScheduler begins the periodic CSV reload
func (s *Service) StartScheduler() error {
	if s.running {
		return fmt.Errorf("catalog scheduler already running")
	}

	if s.config.RefreshSchedule == "" {
		s.logger.Info().Msg("Catalog refresh schedule not set, scheduler disabled")
		return nil
	}

	if err := common.ValidateCronSchedule(s.config.RefreshSchedule); err != nil {
		return fmt.Errorf("invalid catalog refresh schedule: %w", err)
	}

	_, err := s.cron.AddFunc(s.config.RefreshSchedule, func() {
		count, err := s.Reload(context.Background())
		if err != nil {
			s.logger.Warn().Err(err).Msg("Scheduled catalog reload failed")
			return
		}
		s.logger.Info().Int("count", count).Msg("Scheduled catalog reload complete")
	})
	if err != nil {
		return fmt.Errorf("failed to add catalog reload job: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("schedule", s.config.RefreshSchedule).
		Msg("Catalog scheduler started")

	return nil
}

// StopScheduler halts the periodic reload
func (s *Service) StopScheduler() {
	if !s.running {
		return
	}
	s.cron.Stop()
	s.running = false
	s.logger.Info().Msg("Catalog scheduler stopped")
}
