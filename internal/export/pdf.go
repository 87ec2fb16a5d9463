// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"

	"github.com/pdiddy/scholarmind/pkg/types"
)

const (
	pdfFamily     = "Helvetica"
	pdfUTF8Family = "ReportUnicode"
	pdfLineHeight = 5.5
)

// PDFExporter renders an A4 report: a title page, one page per section, and
// a references page. Core fonts cover Windows-1252 only; set FontFile to a
// TrueType font to render other scripts. Without one, a report in a
// non-Latin language is rejected rather than rendered as placeholder dots.
type PDFExporter struct {
	FontFile string
}

func (*PDFExporter) Format() Format    { return FormatPDF }
func (*PDFExporter) Extension() string { return "pdf" }

// Render produces the PDF. Creation and modification dates come from the
// report so repeated renders are byte-identical.
func (e *PDFExporter) Render(report types.ResearchReport) ([]byte, error) {
	if err := validate(report); err != nil {
		return nil, err
	}
	if e.FontFile == "" && needsUnicodeFont(report) {
		return nil, fmt.Errorf("%w: %s text needs a Unicode font (set export.font_file or --font)",
			types.ErrRenderFailed, report.Language)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(false)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(report.GeneratedAt)
	pdf.SetModificationDate(report.GeneratedAt)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)

	family := pdfFamily
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if e.FontFile != "" {
		pdf.AddUTF8Font(pdfUTF8Family, "", e.FontFile)
		pdf.AddUTF8Font(pdfUTF8Family, "B", e.FontFile)
		family = pdfUTF8Family
		tr = func(s string) string { return s }
	}
	pdf.SetTitle(report.Topic, true)
	pdf.SetCreator("ScholarMind", true)

	pdf.SetFooterFunc(func() {
		if pdf.PageNo() == 1 {
			return
		}
		pdf.SetY(-15)
		pdf.SetFont(family, "", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 10, tr(fmt.Sprintf("%s | Page %d", report.Topic, pdf.PageNo())), "", 0, "C", false, 0, "")
	})

	// Title page.
	pdf.AddPage()
	pdf.Ln(60)
	pdf.SetFont(family, "B", 26)
	pdf.SetTextColor(40, 40, 90)
	pdf.MultiCell(0, 12, tr(report.Topic), "", "C", false)
	pdf.Ln(6)
	pdf.SetFont(family, "", 14)
	pdf.SetTextColor(90, 90, 90)
	pdf.CellFormat(0, 8, tr("Research Report"), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 8, tr(report.GeneratedAt.UTC().Format("January 2, 2006")), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 8, tr("Language: "+report.Language), "", 1, "C", false, 0, "")
	pdf.Ln(30)
	pdf.SetFont(family, "", 9)
	pdf.CellFormat(0, 6, tr("Generated by ScholarMind - AI-Powered Research Intelligence"), "", 1, "C", false, 0, "")

	for _, sec := range report.Sections {
		pdf.AddPage()
		pdf.SetFont(family, "B", 16)
		pdf.SetTextColor(40, 40, 90)
		pdf.MultiCell(0, 9, tr(fmt.Sprintf("%d. %s", sec.Index, sec.Title)), "", "L", false)
		pdf.Ln(3)
		pdf.SetTextColor(20, 20, 20)
		writeBody(pdf, family, tr, sec.Body)
	}

	pdf.AddPage()
	pdf.SetFont(family, "B", 16)
	pdf.SetTextColor(40, 40, 90)
	pdf.CellFormat(0, 9, tr("References"), "", 1, "L", false, 0, "")
	pdf.Ln(3)
	pdf.SetFont(family, "", 10)
	pdf.SetTextColor(20, 20, 20)
	if len(report.SourceURLs) == 0 {
		pdf.CellFormat(0, pdfLineHeight, tr("No web sources were used."), "", 1, "L", false, 0, "")
	}
	for i, u := range report.SourceURLs {
		pdf.SetTextColor(30, 60, 160)
		pdf.CellFormat(0, pdfLineHeight+1, tr(fmt.Sprintf("[%d] %s", i+1, u)), "", 1, "L", false, 0, u)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: writing PDF: %v", types.ErrRenderFailed, err)
	}
	return buf.Bytes(), nil
}

// writeBody lays out a section body. Markdown bullets become bullet
// paragraphs, heading lines become bold, and bold markers are dropped.
func writeBody(pdf *fpdf.Fpdf, family string, tr func(string) string, body string) {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(strings.ReplaceAll(line, "**", ""))
		switch {
		case line == "":
			pdf.Ln(2)
		case strings.HasPrefix(line, "#"):
			pdf.SetFont(family, "B", 12)
			pdf.MultiCell(0, pdfLineHeight+1, tr(strings.TrimSpace(strings.TrimLeft(line, "#"))), "", "L", false)
		case strings.HasPrefix(line, "- "), strings.HasPrefix(line, "* "):
			pdf.SetFont(family, "", 11)
			pdf.MultiCell(0, pdfLineHeight, tr("• "+strings.TrimSpace(line[2:])), "", "L", false)
		default:
			pdf.SetFont(family, "", 11)
			pdf.MultiCell(0, pdfLineHeight, tr(line), "", "J", false)
		}
	}
}

// needsUnicodeFont reports whether report contains text the core fonts
// cannot encode: a non-English supported language, or a topic outside
// Windows-1252.
func needsUnicodeFont(report types.ResearchReport) bool {
	if _, ok := types.SupportedLanguages[report.Language]; ok && report.Language != types.DefaultLanguage {
		return true
	}
	for _, r := range report.Topic {
		if _, ok := charmap.Windows1252.EncodeRune(r); !ok {
			return true
		}
	}
	return false
}
