package interfaces

import (
	"context"

	"github.com/ternarybob/colligo/internal/models"
)

// DiscoveryService turns a company's public disclosure page into a
// download plan. It fetches the page, walks the annual-report section
// and the document links, and assigns each discovered file a category,
// year, and destination path.
type DiscoveryService interface {
	// BuildPlan fetches the disclosure page for the company and plans
	// every downloadable document within the year range
	BuildPlan(ctx context.Context, company *models.Company, startYear, endYear int) (*models.RunPlan, error)

	// PlanPreview is BuildPlan plus a markdown excerpt of the page's
	// reports section, for diagnostics. Nothing is downloaded.
	PlanPreview(ctx context.Context, company *models.Company, startYear, endYear int) (*models.RunPlan, string, error)

	// PageURL returns the disclosure page URL for a symbol
	PageURL(symbol string) string
}
