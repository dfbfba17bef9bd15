package discovery

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/models"
)

const samplePage = `<html><body>
<h2>Documents</h2>
<div id="annual-reports">
  <ul>
    <li>Financial Year 2022 <a href="https://www.bseindia.com/ar2022.pdf">Annual Report</a></li>
    <li>Financial Year 2013 <a href="https://www.bseindia.com/ar2013.pdf">Annual Report</a></li>
    <li>Older archive <a href="https://www.bseindia.com/old.pdf">Annual Report</a></li>
  </ul>
</div>
<div class="concalls">
  <ul>
    <li>Feb 2023 <a href="https://nse.example.com/t1.pdf">Transcript</a> <a href="https://nse.example.com/p1.pdf">PPT</a></li>
    <li>Feb 2023 <a href="https://nse.example.com/t2.pdf">Transcript</a></li>
    <li>Feb 2023 <a href="https://nse.example.com/t1.pdf">Transcript</a></li>
    <li>May 2023 <a href="https://nse.example.com/c1-consolidated.pdf">Transcript</a></li>
    <li>Jun 2023 <a href="/concalls/t3.pdf">Transcript</a></li>
    <li>Quarterly call <a href="https://nse.example.com/t4.pdf">Transcript</a></li>
    <li>Sep 2012 <a href="https://nse.example.com/t5.pdf">Transcript</a></li>
  </ul>
</div>
</body></html>`

func newTestPlanner(t *testing.T) *Planner {
	t.Helper()
	return NewPlanner(t.TempDir(), arbor.NewLogger())
}

func TestPlanSamplePage(t *testing.T) {
	planner := newTestPlanner(t)

	plan, err := planner.Plan(samplePage, "Acme Industries", "acme", 2015, 2025)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	// Annual pass: 2022 in range, 2013 out of range, year-less entry
	// dropped. Concall pass: t1 + p1 + t2 planned, duplicate URL
	// deduped, consolidated and relative URLs skipped, year-less and
	// out-of-range entries dropped.
	if len(plan.Tasks) != 4 {
		t.Fatalf("Expected 4 tasks, got %d: %+v", len(plan.Tasks), plan.Tasks)
	}

	counts := plan.CountByCategory()
	if counts[models.CategoryAnnualReport] != 1 {
		t.Errorf("Expected 1 annual report, got %d", counts[models.CategoryAnnualReport])
	}
	if counts[models.CategoryTranscript] != 2 {
		t.Errorf("Expected 2 transcripts, got %d", counts[models.CategoryTranscript])
	}
	if counts[models.CategoryPresentation] != 1 {
		t.Errorf("Expected 1 presentation, got %d", counts[models.CategoryPresentation])
	}

	root := plan.ArchiveRoot
	wantDests := []string{
		filepath.Join(root, "AnnualReports", "2022", "AnnualReport_2022.pdf"),
		filepath.Join(root, "Transcript", "2023", "ACME_Feb_2023_Transcript.pdf"),
		filepath.Join(root, "Presentation", "2023", "ACME_Feb_2023_Presentation.pdf"),
		filepath.Join(root, "Transcript", "2023", "ACME_Feb_2023_Transcript_1.pdf"),
	}
	for i, want := range wantDests {
		if plan.Tasks[i].Destination != want {
			t.Errorf("Task %d destination = %s, want %s", i, plan.Tasks[i].Destination, want)
		}
	}

	if plan.Symbol != "ACME" {
		t.Errorf("Expected uppercased symbol, got %s", plan.Symbol)
	}

	if err := plan.Validate(); err != nil {
		t.Errorf("Plan failed validation: %v", err)
	}
}

func TestPlanIdempotent(t *testing.T) {
	planner := newTestPlanner(t)

	first, err := planner.Plan(samplePage, "Acme Industries", "acme", 2015, 2025)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	second, err := planner.Plan(samplePage, "Acme Industries", "acme", 2015, 2025)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	if !reflect.DeepEqual(first.Tasks, second.Tasks) {
		t.Error("Re-planning an unchanged page produced a different plan")
	}
}

func TestPlanAnnualCollision(t *testing.T) {
	planner := newTestPlanner(t)

	page := `<html><body><div id="annual-reports"><ul>
		<li>FY 2022 <a href="https://x.example.com/a.pdf">Annual Report</a></li>
		<li>Revised 2022 <a href="https://x.example.com/b.pdf">Annual Report</a></li>
	</ul></div></body></html>`

	plan, err := planner.Plan(page, "Acme", "acme", 2015, 2025)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if len(plan.Tasks) != 2 {
		t.Fatalf("Expected 2 tasks, got %d", len(plan.Tasks))
	}

	root := plan.ArchiveRoot
	if want := filepath.Join(root, "AnnualReports", "2022", "AnnualReport_2022.pdf"); plan.Tasks[0].Destination != want {
		t.Errorf("First destination = %s, want %s", plan.Tasks[0].Destination, want)
	}
	if want := filepath.Join(root, "AnnualReports", "2022", "AnnualReport_2022_1.pdf"); plan.Tasks[1].Destination != want {
		t.Errorf("Second destination = %s, want %s", plan.Tasks[1].Destination, want)
	}
}

func TestPlanHeadingFallback(t *testing.T) {
	planner := newTestPlanner(t)

	// No #annual-reports anchor; the section is the first div after
	// the heading in document order, not necessarily a sibling
	page := `<html><body>
		<h3>Annual Reports</h3>
		<section><div><ul>
			<li>FY 2021 <a href="https://x.example.com/ar.pdf">Annual Report</a></li>
		</ul></div></section>
	</body></html>`

	plan, err := planner.Plan(page, "Acme", "acme", 2015, 2025)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if len(plan.Tasks) != 1 {
		t.Fatalf("Expected 1 task via heading fallback, got %d", len(plan.Tasks))
	}
	if plan.Tasks[0].Category != models.CategoryAnnualReport || plan.Tasks[0].Year != 2021 {
		t.Errorf("Unexpected task: %+v", plan.Tasks[0])
	}
}

func TestPlanNoMatches(t *testing.T) {
	planner := newTestPlanner(t)

	plan, err := planner.Plan("<html><body><p>Nothing here</p></body></html>", "Acme", "acme", 2015, 2025)
	if err != nil {
		t.Fatalf("Expected empty plan, got error: %v", err)
	}
	if !plan.IsEmpty() {
		t.Errorf("Expected empty plan, got %d tasks", len(plan.Tasks))
	}
}

func TestPlanEmptyDocument(t *testing.T) {
	planner := newTestPlanner(t)

	_, err := planner.Plan("   ", "Acme", "acme", 2015, 2025)
	if err == nil {
		t.Fatal("Expected error for empty document")
	}

	var discErr *DiscoveryError
	if !errors.As(err, &discErr) {
		t.Errorf("Expected DiscoveryError, got %T", err)
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Acme Industries", "Acme Industries"},
		{`Acme: "Industries" Ltd?`, "Acme Industries Ltd"},
		{`A/B\C*D`, "ABCD"},
		{"  padded  ", "padded"},
	}

	for _, tt := range tests {
		if got := SanitizeName(tt.in); got != tt.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
