package main

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/jung-kurt/gofpdf"
)

const (
	pdfPageWidth  = 210 // A4, mm
	pdfMargin     = 10
	pdfLineHeight = 5
	pdfFontSize   = 9
	pdfTabWidth   = 4
)

// generatePDF renders the aggregated fragments into a syntax-highlighted A4
// PDF. Each fragment keeps its header so the reader can tell files apart —
// the flat text artifact has already lost those boundaries.
func generatePDF(fragments []Fragment, result Result, outputPath string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.AddPage()
	pdf.SetFont("Courier", "", pdfFontSize)

	style := styles.Get("github")
	if style == nil {
		style = styles.Fallback
	}

	for _, frag := range fragments {
		pdf.SetFont("Courier", "B", pdfFontSize)
		pdf.SetTextColor(0, 0, 0)
		pdf.MultiCell(pdfPageWidth-2*pdfMargin, pdfLineHeight, fmt.Sprintf("// File: %s", frag.Path), "", "L", false)
		pdf.SetFont("Courier", "", pdfFontSize)

		writeHighlighted(pdf, style, frag.Path, frag.Content)
		pdf.Ln(pdfLineHeight)
	}

	pdf.SetFont("Courier", "", pdfFontSize)
	pdf.SetTextColor(0, 0, 0)
	pdf.MultiCell(pdfPageWidth-2*pdfMargin, pdfLineHeight, renderSummary(result, -1), "", "L", false)

	return pdf.OutputFileAndClose(outputPath)
}

// writeHighlighted tokenizes content with the lexer matching the file name
// and writes it token by token in the style's colors. Lexer failures degrade
// to plain black text; a PDF export should never fail over highlighting.
func writeHighlighted(pdf *gofpdf.Fpdf, style *chroma.Style, path, content string) {
	content = strings.ReplaceAll(content, "\t", strings.Repeat(" ", pdfTabWidth))

	lexer := lexers.Match(path)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	iterator, err := chroma.Coalesce(lexer).Tokenise(nil, content)
	if err != nil {
		pdf.SetTextColor(0, 0, 0)
		pdf.MultiCell(pdfPageWidth-2*pdfMargin, pdfLineHeight, content, "", "L", false)
		return
	}

	for token := iterator(); token != chroma.EOF; token = iterator() {
		entry := style.Get(token.Type)
		if entry.Colour.IsSet() {
			pdf.SetTextColor(int(entry.Colour.Red()), int(entry.Colour.Green()), int(entry.Colour.Blue()))
		} else {
			pdf.SetTextColor(0, 0, 0)
		}
		pdf.Write(pdfLineHeight, token.Value)
	}
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(pdfLineHeight)
}
