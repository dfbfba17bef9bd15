package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	arbor_models "github.com/ternarybob/arbor/models"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/services/catalog"
	"github.com/ternarybob/colligo/internal/services/discovery"
	"github.com/ternarybob/colligo/internal/storage"
)

func main() {
	// Load configuration
	configPath := os.Getenv("COLLIGO_CONFIG")
	if configPath == "" {
		configPath = "colligo.toml"
	}

	config, err := common.LoadFromFile(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize minimal logger for MCP server (console only, no file output)
	logger := arbor.NewLogger().WithConsoleWriter(arbor_models.WriterConfiguration{
		Type:             arbor_models.LogWriterTypeConsole,
		TimeFormat:       "15:04:05",
		DisableTimestamp: false,
	}).WithLevelFromString("warn") // Minimal logging to avoid cluttering MCP stdio

	// Initialize storage
	storageManager, err := storage.NewStorageManager(logger, config)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	defer storageManager.Close()

	// Catalog without an event bus; nothing subscribes over stdio
	catalogService := catalog.NewService(storageManager, nil, &config.Catalog, logger)
	if _, err := catalogService.Reload(context.Background()); err != nil {
		logger.Warn().Err(err).Str("csv_path", config.Catalog.CSVPath).Msg("Catalog load failed - search results will be empty")
	}

	// Discovery service for plan previews
	pageTimeout := common.ParseDurationOr(config.Source.PageTimeout, 30*time.Second)
	fetcher := discovery.NewFetcher(
		discovery.WithBaseURL(config.Source.BaseURL),
		discovery.WithUserAgent(config.Source.UserAgent),
		discovery.WithHTTPClient(&http.Client{Timeout: pageTimeout}),
		discovery.WithRateLimit(config.Source.RateLimit),
		discovery.WithLogger(logger),
	)
	planner := discovery.NewPlanner(config.Retrieval.DocumentsRoot, logger)
	discoveryService := discovery.NewService(fetcher, planner, logger)

	// Create MCP server
	mcpServer := server.NewMCPServer(
		"colligo",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	// Register directory and planning tools
	mcpServer.AddTool(createSearchCompaniesTool(), handleSearchCompanies(catalogService, logger))
	mcpServer.AddTool(createPlanDocumentsTool(), handlePlanDocuments(catalogService, discoveryService, logger))

	// Start server (blocks on stdio)
	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Fatal().Err(err).Msg("MCP server failed")
	}
}
