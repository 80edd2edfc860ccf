package parser

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/lexsum/internal/doctree"
)

// Parser converts raw document bytes into a DocTree.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.DocTree, error)
}

// ErrNoText is returned when a document yields no readable text.
var ErrNoText = errors.New("no readable text found in document")

// Options tunes the format parsers.
type Options struct {
	// FallbackPdftotext enables the pdftotext binary as the last PDF extractor.
	FallbackPdftotext bool
	// TempFile hands data to fn as a file on disk and removes it afterwards.
	// Used by extractors that need a path. Defaults to a plain temp file.
	TempFile func(data []byte, ext string, fn func(path string) error) error
}

// KnownExtensions lists every extension a parser exists for.
var KnownExtensions = []string{".pdf", ".docx", ".txt", ".md", ".markdown", ".html", ".htm"}

// Registry dispatches filenames to parsers for the enabled formats.
type Registry struct {
	enabled map[string]bool
	opts    Options
}

// NewRegistry enables the given extensions (lower case, leading dot).
// Extensions without a parser are ignored.
func NewRegistry(formats []string, opts Options) *Registry {
	if opts.TempFile == nil {
		opts.TempFile = osTempFile
	}
	r := &Registry{enabled: make(map[string]bool), opts: opts}
	for _, f := range formats {
		f = strings.ToLower(f)
		if newParser(f, opts) != nil {
			r.enabled[f] = true
		}
	}
	return r
}

// IsSupported checks if a filename's extension is enabled.
func (r *Registry) IsSupported(filename string) bool {
	return r.enabled[strings.ToLower(filepath.Ext(filename))]
}

// ForFile returns the appropriate parser for a filename.
func (r *Registry) ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !r.enabled[ext] {
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
	return newParser(ext, r.opts), nil
}

func newParser(ext string, opts Options) Parser {
	switch ext {
	case ".txt":
		return &TextParser{}
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.FallbackPdftotext, TempFile: opts.TempFile}
	case ".docx":
		return &DOCXParser{}
	case ".md", ".markdown":
		return &MarkdownParser{}
	case ".html", ".htm":
		return &HTMLParser{}
	}
	return nil
}

// Extract parses r with the parser for filename and returns the cleaned
// text together with the parsed tree. Empty output is ErrNoText. A parser
// panic is returned as an error.
func (r *Registry) Extract(src io.Reader, filename string) (string, *doctree.DocTree, error) {
	p, err := r.ForFile(filename)
	if err != nil {
		return "", nil, err
	}
	return r.extractWith(p, src, filename)
}

func (r *Registry) extractWith(p Parser, src io.Reader, filename string) (text string, tree *doctree.DocTree, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text, tree, err = "", nil, fmt.Errorf("parse %s: %v", filepath.Ext(filename), rec)
		}
	}()

	tree, err = p.Parse(src, filename)
	if err != nil {
		return "", nil, err
	}
	text = Clean(tree.Text())
	if text == "" {
		return "", tree, ErrNoText
	}
	return text, tree, nil
}

func titleFromFilename(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}
