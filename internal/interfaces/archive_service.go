package interfaces

import (
	"context"
	"io"

	"github.com/ternarybob/colligo/internal/models"
)

// ArchiveService packages a run's archive root into a downloadable ZIP
type ArchiveService interface {
	// WriteArchive streams a ZIP of the run's retrieved documents to w,
	// including a generated run manifest
	WriteArchive(ctx context.Context, run *models.Run, w io.Writer) error

	// ArchiveName returns the download filename for the run's ZIP
	ArchiveName(run *models.Run) string
}
