package main

import (
	"fmt"
	"strings"

	"github.com/ternarybob/colligo/internal/models"
)

// formatCompanyResults formats directory matches as markdown
func formatCompanyResults(query string, companies []*models.Company) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Companies Matching \"%s\" (%d results)\n\n", query, len(companies)))

	if len(companies) == 0 {
		sb.WriteString("No matches found.\n")
		return sb.String()
	}

	for i, company := range companies {
		sb.WriteString(fmt.Sprintf("%d. **%s**\n", i+1, company.Name))
		if company.NSECode != "" {
			sb.WriteString(fmt.Sprintf("   NSE: %s\n", company.NSECode))
		}
		if company.BSECode != "" {
			sb.WriteString(fmt.Sprintf("   BSE: %s\n", company.BSECode))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// formatPlan formats a download plan as markdown
func formatPlan(plan *models.RunPlan) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Download Plan for %s (FY%d-FY%d)\n\n", plan.Company, plan.StartYear, plan.EndYear))
	sb.WriteString(fmt.Sprintf("**Page:** %s\n", plan.SourceURL))
	sb.WriteString(fmt.Sprintf("**Archive root:** %s\n", plan.ArchiveRoot))
	sb.WriteString(fmt.Sprintf("**Tasks:** %d\n\n", len(plan.Tasks)))

	if plan.IsEmpty() {
		sb.WriteString("No documents matched the year range.\n")
		return sb.String()
	}

	counts := plan.CountByCategory()
	sb.WriteString("### By Category\n\n")
	for _, category := range []models.DocumentCategory{models.CategoryAnnualReport, models.CategoryTranscript, models.CategoryPresentation} {
		if n := counts[category]; n > 0 {
			sb.WriteString(fmt.Sprintf("- %s: %d\n", category, n))
		}
	}

	sb.WriteString("\n### Tasks\n\n")
	for i, task := range plan.Tasks {
		label := fmt.Sprintf("%s %d", task.Category, task.Year)
		if task.Qualifier != "" {
			label = fmt.Sprintf("%s %s %d", task.Category, task.Qualifier, task.Year)
		}
		sb.WriteString(fmt.Sprintf("%d. **%s**\n", i+1, label))
		sb.WriteString(fmt.Sprintf("   Source: %s\n", task.SourceURL))
		sb.WriteString(fmt.Sprintf("   Destination: %s\n\n", task.Destination))
	}

	return sb.String()
}
