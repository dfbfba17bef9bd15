package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/handlers"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/services/archive"
	"github.com/ternarybob/colligo/internal/services/catalog"
	"github.com/ternarybob/colligo/internal/services/discovery"
	"github.com/ternarybob/colligo/internal/services/events"
	"github.com/ternarybob/colligo/internal/services/pdf"
	"github.com/ternarybob/colligo/internal/services/retrieval"
	"github.com/ternarybob/colligo/internal/services/status"
	"github.com/ternarybob/colligo/internal/storage"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	ctx            context.Context
	cancelCtx      context.CancelFunc
	StorageManager interfaces.StorageManager

	// Event bus
	EventService interfaces.EventService

	// Company directory and page discovery
	CatalogService   interfaces.CatalogService
	DiscoveryService interfaces.DiscoveryService

	// Retrieval pipeline
	RetrievalService interfaces.RetrievalService

	// Archive generation
	PDFService     interfaces.PDFService
	PDFValidator   interfaces.PDFValidator
	ArchiveService interfaces.ArchiveService

	// Status tracking
	StatusService *status.Service

	// HTTP handlers
	APIHandler      *handlers.APIHandler
	SearchHandler   *handlers.SearchHandler
	PlanHandler     *handlers.PlanHandler
	RunHandler      *handlers.RunHandler
	SSEHandler      *handlers.SSERunEventsHandler
	ArchiveHandler  *handlers.ArchiveHandler
	StatusHandler   *handlers.StatusHandler
	WSHandler       *handlers.WebSocketHandler
	EventSubscriber *handlers.EventSubscriber
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}
	app.ctx, app.cancelCtx = context.WithCancel(context.Background())

	// Initialize database
	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Event bus carries run lifecycle, progress, and catalog events
	app.EventService = events.NewService(app.Logger)
	if err := events.SubscribeLoggerToAllEvents(app.EventService, app.Logger); err != nil {
		logger.Warn().Err(err).Msg("Event logging subscription failed")
	}

	// Initialize services
	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	// Initialize handlers
	if err := app.initHandlers(); err != nil {
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	// Periodic status push for clients that missed a transition
	app.WSHandler.StartStatusBroadcaster(app.ctx)

	logger.Info().
		Int("pool_size", cfg.Retrieval.PoolSize).
		Str("source", cfg.Source.BaseURL).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	storageManager, err := storage.NewStorageManager(a.Logger, a.Config)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	return nil
}

// initServices initializes all business services in dependency order
func (a *App) initServices() error {
	// Catalog over the company storage; the import happens below
	a.CatalogService = catalog.NewService(a.StorageManager, a.EventService, &a.Config.Catalog, a.Logger)

	// Initial directory import. A missing CSV is not fatal; search stays
	// empty until a reload succeeds.
	count, err := a.CatalogService.Reload(context.Background())
	if err != nil {
		a.Logger.Warn().
			Err(err).
			Str("csv_path", a.Config.Catalog.CSVPath).
			Msg("Initial catalog load failed - directory empty until next reload")
	} else {
		a.Logger.Info().Int("companies", count).Msg("Company directory loaded")
	}

	if err := a.CatalogService.StartScheduler(); err != nil {
		return fmt.Errorf("failed to start catalog scheduler: %w", err)
	}

	// Discovery: disclosure page fetcher plus the plan builder
	pageTimeout := common.ParseDurationOr(a.Config.Source.PageTimeout, 30*time.Second)
	fetcher := discovery.NewFetcher(
		discovery.WithBaseURL(a.Config.Source.BaseURL),
		discovery.WithUserAgent(a.Config.Source.UserAgent),
		discovery.WithHTTPClient(&http.Client{Timeout: pageTimeout}),
		discovery.WithRateLimit(a.Config.Source.RateLimit),
		discovery.WithLogger(a.Logger),
	)
	planner := discovery.NewPlanner(a.Config.Retrieval.DocumentsRoot, a.Logger)
	a.DiscoveryService = discovery.NewService(fetcher, planner, a.Logger)
	a.Logger.Debug().Str("source", a.Config.Source.BaseURL).Msg("Discovery service initialized")

	// Retrieval: download executor, bounded worker pool, run registry
	fileTimeout := common.ParseDurationOr(a.Config.Retrieval.FileTimeout, retrieval.DefaultFileTimeout)
	executor := retrieval.NewExecutor(
		retrieval.WithBaseURL(a.Config.Source.BaseURL),
		retrieval.WithUserAgent(a.Config.Source.UserAgent),
		retrieval.WithMinFileSize(a.Config.Retrieval.MinFileSize),
		retrieval.WithHTTPClient(&http.Client{Timeout: fileTimeout}),
		retrieval.WithRateLimit(a.Config.Source.RateLimit),
		retrieval.WithLogger(a.Logger),
	)
	progressInterval := common.ParseDurationOr(a.Config.Retrieval.ProgressInterval, 50*time.Millisecond)
	dispatcher := retrieval.NewDispatcher(executor, a.Config.Retrieval.PoolSize, progressInterval, a.Logger)

	retrievalService := retrieval.NewService(a.DiscoveryService, a.EventService, dispatcher, &a.Config.Retrieval, a.Logger)
	retrievalService.Start()
	a.RetrievalService = retrievalService
	a.Logger.Debug().
		Int("pool_size", a.Config.Retrieval.PoolSize).
		Msg("Retrieval service initialized")

	// Archive: manifest PDF generation plus advisory file checks
	a.PDFService = pdf.NewService(a.Logger)
	a.PDFValidator = pdf.NewValidator(a.Logger)
	a.ArchiveService = archive.NewService(a.PDFService, a.PDFValidator, a.Logger)

	// Status follows run lifecycle events on the bus
	a.StatusService = status.NewService(a.EventService, a.Logger)
	a.StatusService.SubscribeToRunEvents()
	a.Logger.Debug().Msg("Status service initialized")

	return nil
}

// initHandlers initializes all HTTP handlers
func (a *App) initHandlers() error {
	a.APIHandler = handlers.NewAPIHandler()
	a.SearchHandler = handlers.NewSearchHandler(a.CatalogService, a.Logger)
	a.PlanHandler = handlers.NewPlanHandler(a.CatalogService, a.DiscoveryService, a.Logger)
	a.RunHandler = handlers.NewRunHandler(a.RetrievalService, a.CatalogService, a.Logger)
	a.SSEHandler = handlers.NewSSERunEventsHandler(a.RetrievalService, a.Logger)
	a.ArchiveHandler = handlers.NewArchiveHandler(a.RetrievalService, a.ArchiveService, a.Logger)
	a.StatusHandler = handlers.NewStatusHandler(a.StatusService, a.Logger)
	a.WSHandler = handlers.NewWebSocketHandler(a.StatusService, a.Logger)
	a.EventSubscriber = handlers.NewEventSubscriber(a.WSHandler, a.EventService, a.Logger, &a.Config.WebSocket)

	a.Logger.Debug().Msg("HTTP handlers initialized")
	return nil
}

// Close closes all application resources
func (a *App) Close() error {
	if a.cancelCtx != nil {
		a.Logger.Info().Msg("Cancelling background goroutines")
		a.cancelCtx()
	}

	// Drain in-flight runs before the bus and storage go away
	if a.RetrievalService != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.RetrievalService.Shutdown(shutdownCtx); err != nil {
			a.Logger.Warn().Err(err).Msg("Retrieval service shutdown incomplete")
		} else {
			a.Logger.Info().Msg("Retrieval service stopped")
		}
	}

	if a.CatalogService != nil {
		a.CatalogService.StopScheduler()
	}

	// Close event service
	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	// Close storage
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
