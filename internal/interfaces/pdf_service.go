package interfaces

// PDFService handles PDF generation from various formats
type PDFService interface {
	// ConvertMarkdownToPDF converts markdown content to a PDF byte slice
	ConvertMarkdownToPDF(markdown, title string) ([]byte, error)
}

// PDFCheck reports the outcome of a well-formedness probe on a
// downloaded document. Checks are advisory, a failed check never
// removes the file or changes retrieval counts.
type PDFCheck struct {
	Path      string `json:"path"`
	FileSize  int64  `json:"file_size"`
	PageCount int    `json:"page_count"`
	Encrypted bool   `json:"encrypted"`
	Valid     bool   `json:"valid"`
	Detail    string `json:"detail,omitempty"`
}

// PDFValidator probes downloaded documents for PDF well-formedness
type PDFValidator interface {
	// CheckFile parses the file at path as a PDF and reports what it found
	CheckFile(path string) PDFCheck
}
