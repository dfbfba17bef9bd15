package interfaces

import (
	"context"

	"github.com/ternarybob/colligo/internal/models"
)

// CatalogService provides lookup over the company directory.
// The directory is loaded from a listing CSV and indexed for search;
// a scheduled reload picks up a replaced CSV without a restart.
type CatalogService interface {
	// Search returns companies whose name contains the query or whose
	// NSE/BSE code matches it exactly (case-insensitive)
	Search(ctx context.Context, query string) ([]*models.Company, error)

	// GetBySymbol returns the company with the given NSE or BSE code
	GetBySymbol(ctx context.Context, symbol string) (*models.Company, error)

	// Reload re-imports the CSV and returns the number of companies loaded
	Reload(ctx context.Context) (int, error)

	// Count returns the number of companies in the directory
	Count(ctx context.Context) (int, error)

	// StartScheduler begins the periodic CSV reload
	StartScheduler() error

	// StopScheduler halts the periodic reload
	StopScheduler()
}
