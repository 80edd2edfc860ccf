// Package document validates uploads and describes accepted documents.
package document

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/dgallion1/lexsum/internal/config"
	"github.com/dgallion1/lexsum/internal/errhandler"
)

// Metadata describes an accepted upload. It is created once and never
// modified; it is dropped with the session.
type Metadata struct {
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	Format     string    `json:"format"`
	Pages      int       `json:"pages,omitempty"`
	WordCount  int       `json:"word_count"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// ValidationResult is the outcome of Validate. Metadata is set only when
// Valid is true.
type ValidationResult struct {
	Valid    bool      `json:"valid"`
	Errors   []string  `json:"errors,omitempty"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

// Err returns the failures as an upload error, or nil when valid.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return errhandler.Upload("validate_upload", strings.Join(r.Errors, "; "))
}

// Validator checks uploads against the configured limits.
type Validator struct {
	cfg config.Config
	now func() time.Time
}

func NewValidator(cfg config.Config) *Validator {
	return &Validator{cfg: cfg, now: time.Now}
}

// dangerousSequences may not appear anywhere in an upload's filename.
var dangerousSequences = []string{"..", "/", "\\", ":", "*", "?", "\"", "<", ">", "|"}

// Validate checks the extension, size and filename of an upload. It
// stops at the first failure.
func (v *Validator) Validate(filename string, size int64) ValidationResult {
	ext := strings.ToLower(filepath.Ext(filename))
	if !v.cfg.IsSupportedFormat(ext) {
		return invalid(fmt.Sprintf("Unsupported file format. Supported formats: %s", strings.Join(v.cfg.SupportedFormats, ", ")))
	}
	if size > v.cfg.MaxFileSize {
		return invalid(fmt.Sprintf("File too large (%.1fMB). Maximum size: %.1fMB", mb(size), mb(v.cfg.MaxFileSize)))
	}
	if size <= 0 {
		return invalid("File is empty")
	}
	if HasDangerousChars(filename) {
		return invalid("Filename contains invalid characters")
	}
	return ValidationResult{
		Valid: true,
		Metadata: &Metadata{
			Filename:   filename,
			Size:       size,
			Format:     ext,
			UploadedAt: v.now(),
		},
	}
}

func invalid(msg string) ValidationResult {
	return ValidationResult{Errors: []string{msg}}
}

func mb(n int64) float64 { return float64(n) / (1024 * 1024) }

// HasDangerousChars reports whether a filename carries path separators,
// traversal sequences or shell metacharacters.
func HasDangerousChars(filename string) bool {
	for _, s := range dangerousSequences {
		if strings.Contains(filename, s) {
			return true
		}
	}
	return strings.ContainsFunc(filename, unicode.IsControl)
}

// CheckContent verifies that the first bytes of an upload match its
// extension. Text formats only need to be free of NUL bytes, except
// UTF-16 input which carries a byte order mark.
func CheckContent(ext string, head []byte) error {
	switch strings.ToLower(ext) {
	case ".pdf":
		if !bytes.HasPrefix(head, []byte("%PDF-")) {
			return errhandler.Upload("check_content", "file content does not match the .pdf format")
		}
	case ".docx":
		if !bytes.HasPrefix(head, []byte("PK\x03\x04")) {
			return errhandler.Upload("check_content", "file content does not match the .docx format")
		}
	default:
		if bytes.HasPrefix(head, []byte{0xFF, 0xFE}) || bytes.HasPrefix(head, []byte{0xFE, 0xFF}) {
			return nil
		}
		if bytes.IndexByte(head, 0) >= 0 {
			return errhandler.Upload("check_content", "binary content in a text format upload")
		}
	}
	return nil
}

// WithCounts returns a copy of m with page and word counts from extraction.
func (m Metadata) WithCounts(pages, words int) Metadata {
	m.Pages = pages
	m.WordCount = words
	return m
}

// SanitizeFilename reduces a filename to a safe base name for logs and
// download headers.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var sb strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r), r == '.', r == '-', r == '_', r == ' ':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	out := strings.Trim(sb.String(), ". ")
	for strings.Contains(out, "..") {
		out = strings.ReplaceAll(out, "..", ".")
	}
	if out == "" {
		return "document"
	}
	if len(out) > 100 {
		out = out[:100]
	}
	return out
}
