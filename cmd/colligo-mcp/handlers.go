package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
)

// handleSearchCompanies implements the search_companies tool
func handleSearchCompanies(catalogService interfaces.CatalogService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		// Parse query parameter (required)
		query, err := request.RequireString("query")
		if err != nil || strings.TrimSpace(query) == "" {
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent("Error: query parameter is required"),
				},
			}, nil
		}
		query = strings.TrimSpace(query)

		// Parse limit (default: 10)
		limit := request.GetInt("limit", 10)

		// Execute search
		companies, err := catalogService.Search(ctx, query)
		if err != nil {
			logger.Error().Err(err).Msg("Search failed")
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent(fmt.Sprintf("Search error: %v", err)),
				},
			}, nil
		}
		if limit > 0 && len(companies) > limit {
			companies = companies[:limit]
		}

		// Format results as markdown
		markdown := formatCompanyResults(query, companies)
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(markdown),
			},
		}, nil
	}
}

// handlePlanDocuments implements the plan_documents tool
func handlePlanDocuments(catalogService interfaces.CatalogService, discoveryService interfaces.DiscoveryService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		// Parse symbol parameter (required)
		symbol, err := request.RequireString("symbol")
		if err != nil || strings.TrimSpace(symbol) == "" {
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent("Error: symbol parameter is required"),
				},
			}, nil
		}
		symbol = strings.TrimSpace(symbol)

		// Parse year range (required)
		startYear := request.GetInt("start_year", 0)
		endYear := request.GetInt("end_year", 0)
		if startYear == 0 || endYear == 0 {
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent("Error: start_year and end_year parameters are required"),
				},
			}, nil
		}

		// Resolve company from the catalog; unknown symbols still get a
		// preview, the page fetch is the authority
		name := strings.TrimSpace(request.GetString("name", ""))
		company := resolveCompany(ctx, catalogService, symbol, name)

		req := &models.RunRequest{
			CompanyID:   company.ID,
			CompanyName: company.Name,
			Symbol:      symbol,
			StartYear:   startYear,
			EndYear:     endYear,
		}
		if err := req.Validate(); err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent(fmt.Sprintf("Error: invalid request: %v", err)),
				},
			}, nil
		}

		// Build the plan without downloading anything
		plan, err := discoveryService.BuildPlan(ctx, company, startYear, endYear)
		if err != nil {
			logger.Error().Err(err).Str("symbol", symbol).Msg("Plan preview failed")
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent(fmt.Sprintf("Plan error: %v", err)),
				},
			}, nil
		}

		// Format plan as markdown
		markdown := formatPlan(plan)
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(markdown),
			},
		}, nil
	}
}

// resolveCompany enriches the request from the catalog when the symbol
// is known there
func resolveCompany(ctx context.Context, catalogService interfaces.CatalogService, symbol, name string) *models.Company {
	if known, err := catalogService.GetBySymbol(ctx, symbol); err == nil && known != nil {
		if name != "" {
			known.Name = name
		}
		return known
	}

	if name == "" {
		name = symbol
	}
	return &models.Company{
		Name:    name,
		NSECode: strings.ToUpper(symbol),
	}
}
