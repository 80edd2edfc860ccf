// Package output renders summary results for export.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"path/filepath"
	"strings"

	"github.com/dgallion1/lexsum/internal/document"
	"github.com/dgallion1/lexsum/internal/summarizer"
	"github.com/jung-kurt/gofpdf"
	"github.com/yuin/goldmark"
)

// Format is an export format.
type Format string

const (
	FormatText Format = "txt"
	FormatJSON Format = "json"
	FormatPDF  Format = "pdf"
	FormatHTML Format = "html"
)

// Formats lists the export formats in display order.
var Formats = []Format{FormatText, FormatJSON, FormatPDF, FormatHTML}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatPDF:
		return "application/pdf"
	case FormatHTML:
		return "text/html; charset=utf-8"
	}
	return "text/plain; charset=utf-8"
}

const disclaimer = "This summary was generated automatically and is not legal advice."

const timeLayout = "2006-01-02 15:04:05"

// Render dispatches to the renderer for f.
func Render(f Format, res *summarizer.Result, meta document.Metadata) ([]byte, error) {
	switch f {
	case FormatText:
		return []byte(Text(res, meta)), nil
	case FormatJSON:
		return JSON(res)
	case FormatPDF:
		return PDF(res, meta)
	case FormatHTML:
		return HTML(res, meta)
	}
	return nil, fmt.Errorf("unsupported export format %q", f)
}

// plain removes highlight markers.
func plain(s string) string {
	return strings.ReplaceAll(s, "**", "")
}

func headerLines(res *summarizer.Result, meta document.Metadata) []string {
	lines := []string{
		"Document: " + meta.Filename,
		"Generated: " + res.GeneratedAt.Format(timeLayout),
		fmt.Sprintf("Length: %s | Focus: %s", res.Params.Length, res.Params.Focus),
		fmt.Sprintf("Words: %d (original %d)", res.WordCount, res.OriginalWordCount),
		fmt.Sprintf("Confidence: %.0f%%", res.Confidence*100),
	}
	if meta.Pages > 0 {
		lines = append(lines, fmt.Sprintf("Pages: %d", meta.Pages))
	}
	if res.LowConfidence() {
		lines = append(lines, "Note: low confidence, review against the original document.")
	}
	return lines
}

// Text renders a plain-text export suitable for the clipboard.
func Text(res *summarizer.Result, meta document.Metadata) string {
	var sb strings.Builder
	sb.WriteString("LEGAL DOCUMENT SUMMARY\n")
	sb.WriteString("======================\n")
	for _, l := range headerLines(res, meta) {
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')
	sb.WriteString(plain(res.Summary))
	sb.WriteString("\n\n---\n")
	sb.WriteString(disclaimer)
	sb.WriteByte('\n')
	return sb.String()
}

// JSON renders the result with processing time in seconds.
func JSON(res *summarizer.Result) ([]byte, error) {
	return json.MarshalIndent(res, "", "  ")
}

// PDF renders an A4 document with a header block and the summary.
func PDF(res *summarizer.Result, meta document.Metadata) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Legal Document Summary", true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, "Legal Document Summary")
	pdf.Ln(15)

	pdf.SetFont("Arial", "", 10)
	for _, l := range headerLines(res, meta) {
		pdf.Cell(0, 6, tr(l))
		pdf.Ln(6)
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 10, "Summary:")
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 11)
	pdf.MultiCell(0, 6, tr(plain(res.Summary)), "", "", false)
	pdf.Ln(8)

	pdf.SetFont("Arial", "I", 8)
	pdf.MultiCell(0, 5, disclaimer, "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// HTML renders the summary markdown, so highlights become <strong>, inside
// a standalone page. Raw HTML in the summary is not passed through.
func HTML(res *summarizer.Result, meta document.Metadata) ([]byte, error) {
	var body bytes.Buffer
	if err := goldmark.Convert([]byte(res.Summary), &body); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>Legal Document Summary</title></head><body>\n")
	sb.WriteString("<h1>Legal Document Summary</h1>\n<ul>\n")
	for _, l := range headerLines(res, meta) {
		sb.WriteString("<li>" + html.EscapeString(l) + "</li>\n")
	}
	sb.WriteString("</ul>\n")
	sb.Write(body.Bytes())
	sb.WriteString("<hr>\n<p><em>" + disclaimer + "</em></p>\n</body></html>\n")
	return []byte(sb.String()), nil
}

// Filename builds the download name, e.g. "lease_summary.pdf".
func Filename(meta document.Metadata, f Format) string {
	base := document.SanitizeFilename(meta.Filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" {
		base = "document"
	}
	return base + "_summary." + string(f)
}
