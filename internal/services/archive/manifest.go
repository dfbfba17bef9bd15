package archive

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/colligo/internal/models"
)

// buildManifest renders the run summary as markdown, later converted to
// the RunManifest.pdf archive entry
func buildManifest(run *models.Run, entries []entry) string {
	var sb strings.Builder

	sb.WriteString("# Retrieval Manifest\n\n")
	sb.WriteString(fmt.Sprintf("**Company:** %s (%s)\n\n", run.Company, run.Symbol))
	sb.WriteString(fmt.Sprintf("**Period:** %d to %d\n\n", run.StartYear, run.EndYear))
	sb.WriteString(fmt.Sprintf("**Run:** %s\n\n", run.ID))
	sb.WriteString(fmt.Sprintf("**Status:** %s\n\n", run.Status))
	sb.WriteString(fmt.Sprintf("**Retrieved:** %d of %d documents\n\n", run.Completed, run.Total))

	if run.FinishedAt != nil {
		sb.WriteString(fmt.Sprintf("**Finished:** %s\n\n", run.FinishedAt.Format(time.RFC1123)))
	}

	sb.WriteString("## Documents\n\n")
	if len(entries) == 0 {
		sb.WriteString("No documents were packaged.\n\n")
	} else {
		sb.WriteString("| File | Folder | Size | Pages | Check |\n")
		sb.WriteString("|------|--------|------|-------|-------|\n")
		for _, e := range entries {
			checkCol := "ok"
			pagesCol := fmt.Sprintf("%d", e.check.PageCount)
			if !e.check.Valid {
				checkCol = "failed"
				pagesCol = "-"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
				fileBase(e.relPath), e.folder, formatSize(e.size), pagesCol, checkCol))
		}
		sb.WriteString("\n")

		if failed := invalidCount(entries); failed > 0 {
			sb.WriteString(fmt.Sprintf("%d of %d files failed the PDF well-formedness check. ", failed, len(entries)))
			sb.WriteString("Checks are advisory and the files are included as downloaded.\n\n")
		}
	}

	if len(run.Failures) > 0 {
		sb.WriteString("## Failed downloads\n\n")
		sb.WriteString("| File | Reason |\n")
		sb.WriteString("|------|--------|\n")
		for _, f := range run.Failures {
			sb.WriteString(fmt.Sprintf("| %s | %s |\n", filepath.Base(f.Destination), f.Reason))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("Generated by Colligo on %s.\n", time.Now().Format(time.RFC1123)))

	return sb.String()
}

func invalidCount(entries []entry) int {
	n := 0
	for _, e := range entries {
		if !e.check.Valid {
			n++
		}
	}
	return n
}

// fileBase returns the final path segment of a slash path
func fileBase(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

// formatSize renders a byte count in human units
func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/float64(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
