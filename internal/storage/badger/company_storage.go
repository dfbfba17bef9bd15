package badger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// CompanyStorage implements the CompanyStorage interface for Badger
type CompanyStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewCompanyStorage creates a new CompanyStorage instance
func NewCompanyStorage(db *BadgerDB, logger arbor.ILogger) interfaces.CompanyStorage {
	return &CompanyStorage{
		db:     db,
		logger: logger,
	}
}

func (s *CompanyStorage) SaveCompany(ctx context.Context, company *models.Company) error {
	if company.ID == "" {
		return fmt.Errorf("company ID is required")
	}
	if err := company.Validate(); err != nil {
		return err
	}

	now := time.Now()
	if company.CreatedAt.IsZero() {
		company.CreatedAt = now
	}
	company.UpdatedAt = now

	if err := s.db.Store().Upsert(company.ID, company); err != nil {
		return fmt.Errorf("failed to save company: %w", err)
	}
	return nil
}

func (s *CompanyStorage) SaveCompanies(ctx context.Context, companies []*models.Company) error {
	for _, company := range companies {
		if err := s.SaveCompany(ctx, company); err != nil {
			return fmt.Errorf("failed to save company %s: %w", company.Name, err)
		}
	}
	return nil
}

func (s *CompanyStorage) GetCompany(ctx context.Context, id string) (*models.Company, error) {
	var company models.Company
	if err := s.db.Store().Get(id, &company); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("company not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return &company, nil
}

func (s *CompanyStorage) DeleteCompany(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.Company{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete company: %w", err)
	}
	return nil
}

// SearchCompanies matches the query against company names (contains) and
// exchange codes (exact), case-insensitive, capped at limit
func (s *CompanyStorage) SearchCompanies(ctx context.Context, query string, limit int) ([]*models.Company, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil, nil
	}

	match := badgerhold.Where("ID").MatchFunc(func(ra *badgerhold.RecordAccess) (bool, error) {
		company, ok := ra.Record().(*models.Company)
		if !ok {
			return false, nil
		}
		if strings.Contains(strings.ToLower(company.Name), needle) {
			return true, nil
		}
		if strings.EqualFold(company.NSECode, needle) {
			return true, nil
		}
		if strings.EqualFold(company.BSECode, needle) {
			return true, nil
		}
		return false, nil
	}).SortBy("Name")

	if limit > 0 {
		match = match.Limit(limit)
	}

	var companies []models.Company
	if err := s.db.Store().Find(&companies, match); err != nil {
		return nil, fmt.Errorf("failed to search companies: %w", err)
	}

	result := make([]*models.Company, len(companies))
	for i := range companies {
		result[i] = &companies[i]
	}
	return result, nil
}

func (s *CompanyStorage) GetCompanyBySymbol(ctx context.Context, symbol string) (*models.Company, error) {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if sym == "" {
		return nil, fmt.Errorf("symbol is required")
	}

	query := badgerhold.Where("NSECode").Eq(sym).Or(badgerhold.Where("BSECode").Eq(sym))

	var companies []models.Company
	if err := s.db.Store().Find(&companies, query); err != nil {
		return nil, fmt.Errorf("failed to get company by symbol: %w", err)
	}
	if len(companies) == 0 {
		return nil, fmt.Errorf("company not found: %s", symbol)
	}
	return &companies[0], nil
}

func (s *CompanyStorage) CountCompanies(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.Company{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count companies: %w", err)
	}
	return int(count), nil
}

func (s *CompanyStorage) ClearAll(ctx context.Context) error {
	if err := s.db.Store().DeleteMatching(&models.Company{}, badgerhold.Where("ID").Ne("")); err != nil {
		return fmt.Errorf("failed to clear companies: %w", err)
	}
	return nil
}
