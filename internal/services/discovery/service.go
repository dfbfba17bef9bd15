package discovery

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
)

// Service implements DiscoveryService: fetch the disclosure page once,
// hand it to the planner
type Service struct {
	fetcher *Fetcher
	planner *Planner
	logger  arbor.ILogger
}

// NewService creates a new discovery service
func NewService(fetcher *Fetcher, planner *Planner, logger arbor.ILogger) interfaces.DiscoveryService {
	return &Service{
		fetcher: fetcher,
		planner: planner,
		logger:  logger,
	}
}

// BuildPlan fetches the company's disclosure page and plans every
// downloadable document within the year range
func (s *Service) BuildPlan(ctx context.Context, company *models.Company, startYear, endYear int) (*models.RunPlan, error) {
	plan, _, err := s.plan(ctx, company, startYear, endYear)
	return plan, err
}

// PlanPreview is BuildPlan plus a markdown excerpt of the reports
// section for diagnostics
func (s *Service) PlanPreview(ctx context.Context, company *models.Company, startYear, endYear int) (*models.RunPlan, string, error) {
	plan, pageHTML, err := s.plan(ctx, company, startYear, endYear)
	if err != nil {
		return nil, "", err
	}
	return plan, SectionExcerpt(pageHTML, s.fetcher.BaseURL()), nil
}

func (s *Service) plan(ctx context.Context, company *models.Company, startYear, endYear int) (*models.RunPlan, string, error) {
	symbol := company.Symbol()
	if symbol == "" {
		return nil, "", fmt.Errorf("company %s has no exchange code", company.Name)
	}

	pageHTML, err := s.fetcher.FetchPage(ctx, symbol)
	if err != nil {
		return nil, "", err
	}

	plan, err := s.planner.Plan(pageHTML, company.Name, symbol, startYear, endYear)
	if err != nil {
		return nil, "", err
	}
	plan.SourceURL = s.fetcher.PageURL(symbol)

	return plan, pageHTML, nil
}

// PageURL returns the disclosure page URL for a symbol
func (s *Service) PageURL(symbol string) string {
	return s.fetcher.PageURL(symbol)
}
