package pdf

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/interfaces"
)

// Validator probes downloaded documents with pdfcpu. Sources sometimes
// return HTML error pages or truncated bodies with a 200 status, the
// probe surfaces those without touching the files.
type Validator struct {
	logger arbor.ILogger
	conf   *model.Configuration
}

// Compile-time interface assertion
var _ interfaces.PDFValidator = (*Validator)(nil)

// NewValidator creates a new PDF validator
func NewValidator(logger arbor.ILogger) *Validator {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	return &Validator{
		logger: logger,
		conf:   conf,
	}
}

// CheckFile parses the file at path as a PDF and reports what it found.
// The result is advisory only.
func (v *Validator) CheckFile(path string) interfaces.PDFCheck {
	check := interfaces.PDFCheck{Path: path}

	info, err := os.Stat(path)
	if err != nil {
		check.Detail = fmt.Sprintf("stat failed: %v", err)
		return check
	}
	check.FileSize = info.Size()

	if err := api.ValidateFile(path, v.conf); err != nil {
		check.Detail = fmt.Sprintf("not a well-formed PDF: %v", err)
		v.logger.Warn().
			Str("path", path).
			Err(err).
			Msg("Downloaded file failed PDF validation")
		return check
	}

	pdfCtx, err := api.ReadContextFile(path)
	if err != nil {
		check.Detail = fmt.Sprintf("read failed: %v", err)
		return check
	}

	check.Valid = true
	check.PageCount = pdfCtx.PageCount
	check.Encrypted = pdfCtx.Encrypt != nil

	v.logger.Debug().
		Str("path", path).
		Int("page_count", check.PageCount).
		Int64("file_size", check.FileSize).
		Msg("PDF validation passed")

	return check
}
