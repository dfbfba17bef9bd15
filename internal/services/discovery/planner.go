package discovery

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/models"
	"golang.org/x/net/html"
)

// Characters stripped from company names before they become directory
// names
var unsafeNameChars = regexp.MustCompile(`[\\/*?:"<>|]`)

// Planner turns a disclosure page into a deduplicated, year-filtered
// download plan. Two passes run over the document: the annual-report
// section, then every document anchor on the page. Destination paths
// are unique within the plan; collisions get an incrementing suffix.
type Planner struct {
	documentsRoot string
	logger        arbor.ILogger
}

// NewPlanner creates a new planner rooted at documentsRoot
func NewPlanner(documentsRoot string, logger arbor.ILogger) *Planner {
	return &Planner{
		documentsRoot: documentsRoot,
		logger:        logger,
	}
}

// Plan parses the page and builds the run plan for one company and
// year range. It fails only when the page itself cannot be parsed; a
// page with no matching documents yields an empty plan.
func (p *Planner) Plan(pageHTML, companyName, symbol string, startYear, endYear int) (*models.RunPlan, error) {
	if strings.TrimSpace(pageHTML) == "" {
		return nil, &DiscoveryError{Symbol: symbol, Op: "parse", Err: fmt.Errorf("empty document")}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, &DiscoveryError{Symbol: symbol, Op: "parse", Err: err}
	}

	archiveRoot := filepath.Join(p.documentsRoot, SanitizeName(companyName))
	used := make(map[string]bool)

	tasks := p.planAnnualReports(doc, archiveRoot, startYear, endYear, used)
	annualCount := len(tasks)
	tasks = append(tasks, p.planConcallAssets(doc, archiveRoot, symbol, startYear, endYear, used)...)

	if p.logger != nil {
		p.logger.Info().
			Str("company", companyName).
			Int("annual_reports", annualCount).
			Int("concall_assets", len(tasks)-annualCount).
			Int("total", len(tasks)).
			Msg("Download plan built")
	}

	return &models.RunPlan{
		Company:     companyName,
		Symbol:      strings.ToUpper(symbol),
		StartYear:   startYear,
		EndYear:     endYear,
		ArchiveRoot: archiveRoot,
		Tasks:       tasks,
	}, nil
}

// planAnnualReports walks the dedicated annual-report section. Each
// list entry holds one link; the year comes from the entry's own text.
// Entries without a discoverable year are dropped, since the
// destination name depends on it.
func (p *Planner) planAnnualReports(doc *goquery.Document, archiveRoot string, startYear, endYear int, used map[string]bool) []models.DocumentTask {
	section := annualReportSection(doc)
	if section == nil {
		return nil
	}

	var tasks []models.DocumentTask
	section.Find("li").Each(func(_ int, li *goquery.Selection) {
		year, ok := ExtractYear(joinedText(li))
		if !ok {
			return
		}
		if year < startYear || year > endYear {
			return
		}

		link := li.Find("a[href]").First()
		if link.Length() == 0 {
			return
		}
		href, _ := link.Attr("href")
		if href == "" {
			return
		}

		yearDir := strconv.Itoa(year)
		dest := uniqueDest(filepath.Join(archiveRoot, models.CategoryAnnualReport.DirName(), yearDir, fmt.Sprintf("AnnualReport_%d.pdf", year)), used)

		tasks = append(tasks, models.DocumentTask{
			Category:    models.CategoryAnnualReport,
			Year:        year,
			SourceURL:   href,
			Destination: dest,
		})
	})

	return tasks
}

// planConcallAssets scans every anchor on the page once, in document
// order. Transcripts match on text containing "transcript";
// presentation decks match on text equal to "ppt". URLs already
// planned and URLs carrying the source's "consolidated" noise marker
// are skipped.
func (p *Planner) planConcallAssets(doc *goquery.Document, archiveRoot, symbol string, startYear, endYear int, used map[string]bool) []models.DocumentTask {
	symbolUpper := strings.ToUpper(symbol)
	seen := make(map[string]bool)

	var tasks []models.DocumentTask
	doc.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		if seen[href] || !strings.HasPrefix(href, "http") || strings.Contains(href, "consolidated") {
			return
		}

		text := strings.ToLower(strippedText(link))
		var category models.DocumentCategory
		switch {
		case strings.Contains(text, "transcript"):
			category = models.CategoryTranscript
		case text == "ppt":
			category = models.CategoryPresentation
		default:
			return
		}

		year, qualifier, ok := ExtractMetadata(link)
		if !ok {
			return
		}
		if year < startYear || year > endYear {
			return
		}

		seen[href] = true

		yearDir := strconv.Itoa(year)
		name := fmt.Sprintf("%s_%s_%d_%s.pdf", symbolUpper, qualifier, year, category)
		dest := uniqueDest(filepath.Join(archiveRoot, category.DirName(), yearDir, name), used)

		tasks = append(tasks, models.DocumentTask{
			Category:    category,
			Year:        year,
			Qualifier:   qualifier,
			SourceURL:   href,
			Destination: dest,
		})
	})

	return tasks
}

// annualReportSection locates the reports container: the known section
// anchor first, then the first div following an "annual report"
// heading. Returns nil when the page has no such section.
func annualReportSection(doc *goquery.Document) *goquery.Selection {
	section := doc.Find("div#annual-reports").First()
	if section.Length() > 0 {
		return section
	}

	heading := doc.Find("h2, h3").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(strings.ToLower(s.Text()), "annual report")
	}).First()
	if heading.Length() == 0 {
		return nil
	}

	return nextDiv(heading)
}

// nextDiv returns the first div after the heading in document order
func nextDiv(heading *goquery.Selection) *goquery.Selection {
	for n := nextNode(heading.Get(0)); n != nil; n = nextNode(n) {
		if n.Type == html.ElementNode && n.Data == "div" {
			return goquery.NewDocumentFromNode(n).Selection
		}
	}
	return nil
}

// nextNode is the depth-first pre-order successor
func nextNode(n *html.Node) *html.Node {
	if n.FirstChild != nil {
		return n.FirstChild
	}
	for n != nil {
		if n.NextSibling != nil {
			return n.NextSibling
		}
		n = n.Parent
	}
	return nil
}

// uniqueDest claims path in the plan-scoped set, suffixing _1, _2, ...
// before the extension until the path is unused. Uniqueness is checked
// against the current plan only, never against leftovers on disk.
func uniqueDest(path string, used map[string]bool) string {
	if !used[path] {
		used[path] = true
		return path
	}
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", base, i, ext)
		if !used[candidate] {
			used[candidate] = true
			return candidate
		}
	}
}

// SanitizeName strips filesystem-unsafe characters from a company name
func SanitizeName(name string) string {
	return strings.TrimSpace(unsafeNameChars.ReplaceAllString(name, ""))
}
