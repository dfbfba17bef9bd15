package interfaces

import (
	"context"

	"github.com/ternarybob/colligo/internal/models"
)

// CompanyStorage - interface for company directory persistence
type CompanyStorage interface {
	// CRUD operations
	SaveCompany(ctx context.Context, company *models.Company) error
	SaveCompanies(ctx context.Context, companies []*models.Company) error
	GetCompany(ctx context.Context, id string) (*models.Company, error)
	DeleteCompany(ctx context.Context, id string) error

	// Search operations
	SearchCompanies(ctx context.Context, query string, limit int) ([]*models.Company, error)
	GetCompanyBySymbol(ctx context.Context, symbol string) (*models.Company, error)

	// Stats operations
	CountCompanies(ctx context.Context) (int, error)

	// Bulk operations
	ClearAll(ctx context.Context) error
}

// StorageManager - composite interface for all storage operations
type StorageManager interface {
	CompanyStorage() CompanyStorage
	LoadCompaniesFromCSV(ctx context.Context, csvPath string) (int, error)
	DB() interface{}
	Close() error
}
