package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/services/pdf"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	logger := arbor.NewLogger()
	return NewService(pdf.NewService(logger), pdf.NewValidator(logger), logger).(*Service)
}

// seedRunDir lays out a finished run's directory with real PDF content
func seedRunDir(t *testing.T, root string) {
	t.Helper()
	logger := arbor.NewLogger()
	pdfService := pdf.NewService(logger)

	files := map[string]string{
		filepath.Join(root, "AnnualReports", "Report_2021.pdf"):       "# Annual Report 2021",
		filepath.Join(root, "AnnualReports", "Report_2022.pdf"):       "# Annual Report 2022",
		filepath.Join(root, "Transcripts", "Transcript_Feb_2022.pdf"): "# Earnings Call",
	}
	for path, md := range files {
		content, err := pdfService.ConvertMarkdownToPDF(md, "doc")
		require.NoError(t, err)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, content, 0644))
	}

	// Leftover non-PDF files are never packaged
	require.NoError(t, os.WriteFile(filepath.Join(root, "AnnualReports", "Report_2023.pdf.part"), []byte("partial"), 0644))
}

func finishedRun(root string) *models.Run {
	now := time.Now()
	return &models.Run{
		ID:          "run-1",
		Company:     "Reliance Industries",
		Symbol:      "RELIANCE",
		StartYear:   2021,
		EndYear:     2022,
		Status:      models.RunStatusCompleted,
		Total:       4,
		Completed:   3,
		ArchiveRoot: root,
		Failures: []models.TaskFailure{
			{SourceURL: "https://example.com/x.pdf", Destination: filepath.Join(root, "Transcripts", "PPT_May_2022.pdf"), Reason: "status 404"},
		},
		CreatedAt:  now,
		FinishedAt: &now,
	}
}

func TestWriteArchive(t *testing.T) {
	svc := newTestService(t)

	base := t.TempDir()
	root := filepath.Join(base, "Reliance Industries")
	seedRunDir(t, root)
	run := finishedRun(root)

	var buf bytes.Buffer
	err := svc.WriteArchive(context.Background(), run, &buf)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	names := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		names[f.Name] = f
	}

	assert.Contains(t, names, "Reliance Industries/AnnualReports/Report_2021.pdf")
	assert.Contains(t, names, "Reliance Industries/AnnualReports/Report_2022.pdf")
	assert.Contains(t, names, "Reliance Industries/Transcripts/Transcript_Feb_2022.pdf")
	assert.Contains(t, names, "Reliance Industries/RunManifest.pdf")
	assert.Len(t, zr.File, 4)

	for _, f := range zr.File {
		assert.Equal(t, zip.Deflate, f.Method, f.Name)
	}

	// Manifest exists only inside the archive
	_, err = os.Stat(filepath.Join(root, "RunManifest.pdf"))
	assert.True(t, os.IsNotExist(err))

	rc, err := names["Reliance Industries/RunManifest.pdf"].Open()
	require.NoError(t, err)
	defer rc.Close()
	head := make([]byte, 4)
	_, err = rc.Read(head)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(head))
}

func TestWriteArchiveMissingRoot(t *testing.T) {
	svc := newTestService(t)

	run := finishedRun(filepath.Join(t.TempDir(), "absent"))
	err := svc.WriteArchive(context.Background(), run, &bytes.Buffer{})
	assert.Error(t, err)

	run.ArchiveRoot = ""
	err = svc.WriteArchive(context.Background(), run, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestWriteArchiveCancelled(t *testing.T) {
	svc := newTestService(t)

	base := t.TempDir()
	root := filepath.Join(base, "Reliance Industries")
	seedRunDir(t, root)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.WriteArchive(ctx, finishedRun(root), &bytes.Buffer{})
	assert.Error(t, err)
}

func TestArchiveName(t *testing.T) {
	svc := newTestService(t)

	tests := []struct {
		company string
		want    string
	}{
		{"Reliance Industries", "Reliance_Industries_Documents.zip"},
		{"Tata Motors", "Tata_Motors_Documents.zip"},
		{`A/B:C`, "ABC_Documents.zip"},
		{"", "Documents.zip"},
	}
	for _, tt := range tests {
		got := svc.ArchiveName(&models.Run{Company: tt.company})
		assert.Equal(t, tt.want, got, tt.company)
	}
}

func TestBuildManifest(t *testing.T) {
	root := filepath.Join("docs", "Reliance Industries")
	run := finishedRun(root)

	entries := []entry{
		{relPath: "Reliance Industries/AnnualReports/Report_2021.pdf", folder: "AnnualReports", size: 2048, check: validCheck(3)},
		{relPath: "Reliance Industries/Transcripts/Transcript_Feb_2022.pdf", folder: "Transcripts", size: 1024, check: invalidCheck()},
	}

	md := buildManifest(run, entries)

	assert.Contains(t, md, "# Retrieval Manifest")
	assert.Contains(t, md, "Reliance Industries (RELIANCE)")
	assert.Contains(t, md, "2021 to 2022")
	assert.Contains(t, md, "3 of 4 documents")
	assert.Contains(t, md, "| Report_2021.pdf | AnnualReports | 2.0 KB | 3 | ok |")
	assert.Contains(t, md, "| Transcript_Feb_2022.pdf | Transcripts | 1.0 KB | - | failed |")
	assert.Contains(t, md, "1 of 2 files failed the PDF well-formedness check")
	assert.Contains(t, md, "## Failed downloads")
	assert.Contains(t, md, "| PPT_May_2022.pdf | status 404 |")
}

func TestBuildManifestEmpty(t *testing.T) {
	run := finishedRun("docs/Empty Co")
	run.Failures = nil

	md := buildManifest(run, nil)
	assert.Contains(t, md, "No documents were packaged.")
	assert.NotContains(t, md, "## Failed downloads")
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{3 << 20, "3.0 MB"},
	}
	for _, tt := range tests {
		if got := formatSize(tt.n); got != tt.want {
			t.Errorf("formatSize(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func validCheck(pages int) interfaces.PDFCheck {
	return interfaces.PDFCheck{Valid: true, PageCount: pages}
}

func invalidCheck() interfaces.PDFCheck {
	return interfaces.PDFCheck{Detail: "not a well-formed PDF"}
}
