package models

import (
	"fmt"
)

// DocumentCategory classifies a planned retrieval task
type DocumentCategory string

const (
	CategoryAnnualReport DocumentCategory = "AnnualReport"
	CategoryTranscript   DocumentCategory = "Transcript"
	CategoryPresentation DocumentCategory = "Presentation"
)

// DirName returns the directory segment used for this category under the
// archive root. Annual reports use a dedicated plural directory; concall
// assets use the category name as-is.
func (c DocumentCategory) DirName() string {
	if c == CategoryAnnualReport {
		return "AnnualReports"
	}
	return string(c)
}

// DocumentTask is one unit of retrieval work: a source URL bound to a
// destination path. Tasks are immutable once planned.
type DocumentTask struct {
	Category    DocumentCategory `json:"category"`
	Year        int              `json:"year"`
	Qualifier   string           `json:"qualifier,omitempty"` // month label for concall assets, empty for reports
	SourceURL   string           `json:"source_url"`
	Destination string           `json:"destination"`
}

// RunPlan is the ordered task list produced by one discovery pass over a
// company's disclosure page. Destination paths are unique within a plan;
// an empty task list is a valid plan, not an error.
type RunPlan struct {
	Company     string         `json:"company"`
	Symbol      string         `json:"symbol"`
	StartYear   int            `json:"start_year"`
	EndYear     int            `json:"end_year"`
	SourceURL   string         `json:"source_url"`
	ArchiveRoot string         `json:"archive_root"`
	Tasks       []DocumentTask `json:"tasks"`
}

// IsEmpty reports whether discovery matched nothing
func (p *RunPlan) IsEmpty() bool {
	return len(p.Tasks) == 0
}

// CountByCategory returns task counts keyed by category
func (p *RunPlan) CountByCategory() map[DocumentCategory]int {
	counts := make(map[DocumentCategory]int)
	for _, t := range p.Tasks {
		counts[t.Category]++
	}
	return counts
}

// Validate checks the plan's internal invariants: ordered year range and
// destination uniqueness across all tasks.
func (p *RunPlan) Validate() error {
	if p.Company == "" {
		return fmt.Errorf("plan has no company name")
	}
	if p.StartYear > p.EndYear {
		return fmt.Errorf("invalid year range: %d > %d", p.StartYear, p.EndYear)
	}
	seen := make(map[string]struct{}, len(p.Tasks))
	for _, t := range p.Tasks {
		if _, dup := seen[t.Destination]; dup {
			return fmt.Errorf("duplicate destination in plan: %s", t.Destination)
		}
		seen[t.Destination] = struct{}{}
	}
	return nil
}
