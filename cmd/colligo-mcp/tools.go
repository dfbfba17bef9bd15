package main

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createSearchCompaniesTool returns the search_companies tool definition
func createSearchCompaniesTool() mcp.Tool {
	return mcp.NewTool("search_companies",
		mcp.WithDescription("Search the company directory by name or exchange code"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Company name fragment or exact NSE/BSE code (case-insensitive)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results to return (default: 10)"),
		),
	)
}

// createPlanDocumentsTool returns the plan_documents tool definition
func createPlanDocumentsTool() mcp.Tool {
	return mcp.NewTool("plan_documents",
		mcp.WithDescription("Preview the download plan for a company's disclosure page; nothing is downloaded"),
		mcp.WithString("symbol",
			mcp.Required(),
			mcp.Description("NSE or BSE code identifying the company"),
		),
		mcp.WithString("name",
			mcp.Description("Company display name (defaults to the catalog entry, then the symbol)"),
		),
		mcp.WithNumber("start_year",
			mcp.Required(),
			mcp.Description("First fiscal year of the range, inclusive"),
		),
		mcp.WithNumber("end_year",
			mcp.Required(),
			mcp.Description("Last fiscal year of the range, inclusive"),
		),
	)
}
