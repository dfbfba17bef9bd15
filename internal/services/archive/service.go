package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/services/discovery"
)

const manifestFileName = "RunManifest.pdf"

// Service packages a run's archive root into a downloadable ZIP. The
// manifest exists only as a ZIP entry, the directory on disk is never
// touched after the run finishes.
type Service struct {
	pdfService interfaces.PDFService
	validator  interfaces.PDFValidator
	logger     arbor.ILogger
}

// entry is one packaged document plus its advisory check result
type entry struct {
	relPath string
	folder  string
	size    int64
	check   interfaces.PDFCheck
}

// NewService creates a new archive service
func NewService(pdfService interfaces.PDFService, validator interfaces.PDFValidator, logger arbor.ILogger) interfaces.ArchiveService {
	return &Service{
		pdfService: pdfService,
		validator:  validator,
		logger:     logger,
	}
}

// ArchiveName returns the download filename for the run's ZIP
func (s *Service) ArchiveName(run *models.Run) string {
	name := discovery.SanitizeName(run.Company)
	if name == "" {
		return "Documents.zip"
	}
	return fmt.Sprintf("%s_Documents.zip", strings.ReplaceAll(name, " ", "_"))
}

// WriteArchive streams a deflate ZIP of every PDF under the run's
// archive root to w. Entry names are relative to the root's parent so
// the company directory is the archive's top-level folder. A generated
// manifest PDF is appended as the final entry.
func (s *Service) WriteArchive(ctx context.Context, run *models.Run, w io.Writer) error {
	if run.ArchiveRoot == "" {
		return fmt.Errorf("run %s has no archive root", run.ID)
	}

	rootInfo, err := os.Stat(run.ArchiveRoot)
	if err != nil {
		return fmt.Errorf("archive root unavailable: %w", err)
	}
	if !rootInfo.IsDir() {
		return fmt.Errorf("archive root %s is not a directory", run.ArchiveRoot)
	}

	baseDir := filepath.Dir(run.ArchiveRoot)
	topFolder := filepath.Base(run.ArchiveRoot)

	zw := zip.NewWriter(w)

	entries, err := s.packageDocuments(ctx, zw, run.ArchiveRoot, baseDir)
	if err != nil {
		zw.Close()
		return err
	}

	if err := s.appendManifest(zw, run, topFolder, entries); err != nil {
		zw.Close()
		return err
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}

	s.logger.Info().
		Str("run_id", run.ID).
		Int("documents", len(entries)).
		Msg("Archive streamed")

	return nil
}

// packageDocuments walks the root in lexical order and writes one
// deflate entry per PDF file
func (s *Service) packageDocuments(ctx context.Context, zw *zip.Writer, root, baseDir string) ([]entry, error) {
	var entries []entry

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".pdf") {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(baseDir, path)
		if err != nil {
			return err
		}
		entryName := filepath.ToSlash(rel)

		check := s.validator.CheckFile(path)

		header := &zip.FileHeader{
			Name:     entryName,
			Method:   zip.Deflate,
			Modified: info.ModTime(),
		}
		fw, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("failed to create archive entry %s: %w", entryName, err)
		}

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		_, copyErr := io.Copy(fw, f)
		f.Close()
		if copyErr != nil {
			return fmt.Errorf("failed to copy %s into archive: %w", path, copyErr)
		}

		entries = append(entries, entry{
			relPath: entryName,
			folder:  filepath.Base(filepath.Dir(path)),
			size:    info.Size(),
			check:   check,
		})
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("failed to package documents: %w", walkErr)
	}

	return entries, nil
}

// appendManifest renders the run summary to PDF and adds it under the
// company folder as a ZIP-only entry
func (s *Service) appendManifest(zw *zip.Writer, run *models.Run, topFolder string, entries []entry) error {
	markdown := buildManifest(run, entries)

	pdfBytes, err := s.pdfService.ConvertMarkdownToPDF(markdown, fmt.Sprintf("%s Retrieval Manifest", run.Company))
	if err != nil {
		return fmt.Errorf("failed to render manifest: %w", err)
	}

	header := &zip.FileHeader{
		Name:   topFolder + "/" + manifestFileName,
		Method: zip.Deflate,
	}
	fw, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to create manifest entry: %w", err)
	}
	if _, err := fw.Write(pdfBytes); err != nil {
		return fmt.Errorf("failed to write manifest entry: %w", err)
	}
	return nil
}
