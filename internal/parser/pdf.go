package parser

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/dgallion1/lexsum/internal/doctree"
	"github.com/gen2brain/go-fitz"
	pdflib "github.com/ledongthuc/pdf"
)

// PDFParser handles PDF files. It tries the pure-Go reader first, then
// MuPDF, then pdftotext if enabled. An extractor that returns only
// whitespace counts as failed.
type PDFParser struct {
	FallbackPdftotext bool
	TempFile          func(data []byte, ext string, fn func(path string) error) error
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}

	pages, err := extractPDFText(data)
	if err != nil || blank(pages) {
		pages, err = extractFitzText(data)
	}
	if (err != nil || blank(pages)) && p.FallbackPdftotext {
		pages, err = p.extractPdftotext(data)
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	tree := &doctree.DocTree{
		Title: titleFromFilename(filename),
		Pages: len(pages),
	}
	for i, page := range pages {
		page = strings.TrimSpace(page)
		if page == "" {
			continue
		}
		tree.Children = append(tree.Children, &doctree.DocNode{
			Text: page,
			Page: i + 1,
		})
	}
	return tree, nil
}

// extractPDFText reads pages with the pure-Go reader, which panics on
// malformed input; a panic is returned as an error.
func extractPDFText(data []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("pdf reader: %v", r)
		}
	}()

	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	numPages := reader.NumPage()
	pages = make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}

func extractFitzText(data []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("mupdf: %v", r)
		}
	}()

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("mupdf: %w", err)
	}
	defer doc.Close()

	pages = make([]string, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}

func (p *PDFParser) extractPdftotext(data []byte) ([]string, error) {
	tempFile := p.TempFile
	if tempFile == nil {
		tempFile = osTempFile
	}
	var out []byte
	err := tempFile(data, ".pdf", func(path string) error {
		var err error
		out, err = exec.Command("pdftotext", "-layout", path, "-").Output()
		if err != nil {
			return fmt.Errorf("pdftotext: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// pdftotext separates pages with form feeds.
	return strings.Split(string(out), "\f"), nil
}

func blank(pages []string) bool {
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			return false
		}
	}
	return true
}

func osTempFile(data []byte, ext string, fn func(path string) error) error {
	tmp, err := os.CreateTemp("", "lexsum-*"+ext)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	path := tmp.Name()
	defer os.Remove(path)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	return fn(path)
}
