package pdf

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

const (
	manifestFont     = "Helvetica"
	manifestFontSize = 9.0
	tableFontSize    = 8.0
	tableLineHeight  = 4.0
	tableMaxRowLines = 8
	printableWidth   = 180.0
)

// Service renders markdown to PDF. The archive packager uses it for the
// run manifest; the markdown subset it understands matches what the
// manifest builder emits (headings, paragraphs, emphasis, code spans,
// lists and pipe tables).
type Service struct {
	logger arbor.ILogger
}

var _ interfaces.PDFService = (*Service)(nil)

// NewService creates a new PDF service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		logger: logger,
	}
}

// ConvertMarkdownToPDF converts markdown content to a PDF byte slice
func (s *Service) ConvertMarkdownToPDF(markdown, title string) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(10, 10, 10)
	doc.SetAutoPageBreak(true, 10)
	doc.SetTitle(title, true)
	doc.AddPage()
	doc.SetFont(manifestFont, "", manifestFontSize)

	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	source := []byte(markdown)
	root := md.Parser().Parse(text.NewReader(source))

	w := &manifestWriter{doc: doc, source: source}
	if err := ast.Walk(root, w.visit); err != nil {
		s.logger.Error().Err(err).Str("title", title).Msg("Markdown rendering failed")
		return nil, fmt.Errorf("failed to render markdown: %w", err)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		s.logger.Error().Err(err).Str("title", title).Msg("PDF output failed")
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}

	s.logger.Debug().Str("title", title).Int("bytes", buf.Len()).Msg("PDF rendered")
	return buf.Bytes(), nil
}

// manifestWriter walks the markdown AST and drives the fpdf document.
// Inline style is tracked as state because emphasis nodes nest around
// the text nodes that carry the actual content.
type manifestWriter struct {
	doc       *fpdf.Fpdf
	source    []byte
	bold      bool
	italic    bool
	listDepth int
}

func (w *manifestWriter) visit(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		w.heading(node, entering)
	case *ast.Paragraph:
		if !entering {
			w.doc.Ln(7)
		}
	case *ast.Text:
		if entering {
			w.doc.Write(5, string(node.Text(w.source)))
		}
	case *ast.Emphasis:
		if node.Level == 2 {
			w.bold = entering
		} else {
			w.italic = entering
		}
		w.applyStyle()
	case *ast.CodeSpan:
		return w.codeSpan(node, entering), nil
	case *ast.List:
		if entering {
			w.listDepth++
		} else {
			w.listDepth--
			if w.listDepth == 0 {
				w.doc.Ln(2)
			}
		}
	case *ast.ListItem:
		if entering {
			w.doc.Ln(5)
			w.doc.SetX(15 + float64(w.listDepth)*5)
			w.doc.Write(5, "- ")
		}
	case *extast.Table:
		if entering {
			w.table(node)
			return ast.WalkSkipChildren, nil
		}
	}
	return ast.WalkContinue, nil
}

func (w *manifestWriter) applyStyle() {
	style := ""
	if w.bold {
		style += "B"
	}
	if w.italic {
		style += "I"
	}
	w.doc.SetFont(manifestFont, style, manifestFontSize)
}

func (w *manifestWriter) heading(n *ast.Heading, entering bool) {
	if entering {
		w.doc.Ln(6)
		size := manifestFontSize + 1
		switch n.Level {
		case 1:
			size = 14
		case 2:
			size = 12
		case 3:
			size = 11
		}
		w.doc.SetFont(manifestFont, "B", size)
		return
	}
	w.doc.Ln(6)
	w.applyStyle()
}

// codeSpan renders inline code in a monospace face. The text sits on the
// span's children, so rendering consumes them and skips the subtree.
func (w *manifestWriter) codeSpan(n *ast.CodeSpan, entering bool) ast.WalkStatus {
	if !entering {
		w.applyStyle()
		return ast.WalkSkipChildren
	}
	w.doc.SetFont("Courier", "", manifestFontSize+1)
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			w.doc.Write(5, string(t.Segment.Value(w.source)))
		}
	}
	return ast.WalkSkipChildren
}

// table renders a pipe table as a bordered grid. The header and body
// rows are collected up front so column widths can be measured before
// anything is drawn.
func (w *manifestWriter) table(n *extast.Table) {
	// TableHeader carries its cells directly; body rows are TableRow nodes
	var rows [][]string
	for section := n.FirstChild(); section != nil; section = section.NextSibling() {
		switch section.(type) {
		case *extast.TableHeader, *extast.TableRow:
			rows = append(rows, w.cellsOf(section))
		}
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}

	w.doc.Ln(2)
	widths := w.columnWidths(rows)

	for i, row := range rows {
		header := i == 0
		if header {
			w.doc.SetFont(manifestFont, "B", tableFontSize)
		} else {
			w.doc.SetFont(manifestFont, "", tableFontSize)
		}
		w.tableRow(row, widths, header)
	}

	w.doc.Ln(3)
	w.applyStyle()
}

func (w *manifestWriter) cellsOf(n ast.Node) []string {
	var cells []string
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if _, ok := c.(*extast.TableCell); ok {
			cells = append(cells, string(c.Text(w.source)))
		}
	}
	return cells
}

// columnWidths sizes each column to its widest cell, clamped between a
// readable minimum and a third of the page, then scales the whole set
// down when the total overflows the printable width.
func (w *manifestWriter) columnWidths(rows [][]string) []float64 {
	cols := len(rows[0])
	widths := make([]float64, cols)

	for i, row := range rows {
		if i == 0 {
			w.doc.SetFont(manifestFont, "B", tableFontSize)
		} else {
			w.doc.SetFont(manifestFont, "", tableFontSize)
		}
		for j, cell := range row {
			if j >= cols {
				break
			}
			if cw := w.doc.GetStringWidth(cell) + 4; cw > widths[j] {
				widths[j] = cw
			}
		}
	}

	const minWidth = 12.0
	total := 0.0
	for j := range widths {
		if widths[j] < minWidth {
			widths[j] = minWidth
		}
		if widths[j] > printableWidth/3 {
			widths[j] = printableWidth / 3
		}
		total += widths[j]
	}

	if total > printableWidth {
		scale := printableWidth / total
		for j := range widths {
			widths[j] *= scale
		}
	}
	return widths
}

func (w *manifestWriter) tableRow(row []string, widths []float64, header bool) {
	// Wrap every cell first; the row is as tall as its tallest cell
	wrapped := make([][]string, len(widths))
	rowLines := 1
	for j := range widths {
		cell := ""
		if j < len(row) {
			cell = row[j]
		}
		lines := w.wrapCell(cell, widths[j]-2)
		wrapped[j] = lines
		if len(lines) > rowLines {
			rowLines = len(lines)
		}
	}
	if rowLines > tableMaxRowLines {
		rowLines = tableMaxRowLines
	}

	rowHeight := float64(rowLines)*tableLineHeight + 2
	x0 := w.doc.GetX()
	y0 := w.doc.GetY()

	// A4 is 297mm tall; keep the bottom margin clear
	if y0+rowHeight > 282 {
		w.doc.AddPage()
		y0 = w.doc.GetY()
	}

	x := x0
	for j, lines := range wrapped {
		if header {
			w.doc.SetFillColor(230, 230, 230)
			w.doc.Rect(x, y0, widths[j], rowHeight, "FD")
		} else {
			w.doc.Rect(x, y0, widths[j], rowHeight, "D")
		}
		w.doc.SetXY(x+1, y0+1)
		for k := 0; k < len(lines) && k < rowLines; k++ {
			line := lines[k]
			if k == rowLines-1 && len(lines) > rowLines {
				line = w.ellipsize(line, widths[j]-2)
			}
			w.doc.CellFormat(widths[j]-2, tableLineHeight, line, "", 2, "L", false, 0, "")
		}
		x += widths[j]
	}

	w.doc.SetXY(x0, y0+rowHeight)
}

// wrapCell breaks cell text into lines that fit the column width
func (w *manifestWriter) wrapCell(cell string, width float64) []string {
	if cell == "" || width <= 0 {
		return []string{""}
	}
	lines := w.doc.SplitText(cell, width)
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}

func (w *manifestWriter) ellipsize(line string, width float64) string {
	for w.doc.GetStringWidth(line+"...") > width && len(line) > 3 {
		line = line[:len(line)-1]
	}
	return line + "..."
}
