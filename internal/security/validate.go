package security

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
)

// ErrSuspiciousInput marks a request value that matched an attack pattern.
var ErrSuspiciousInput = errors.New("suspicious input")

var (
	traversalPattern = regexp.MustCompile(`(?i)(\.\./|\.\.\\|%2e%2e(%2f|%5c|/|\\))`)

	scriptPattern = regexp.MustCompile(`(?i)(<\s*script|<\s*iframe|javascript:|\bon[a-z]+\s*=)`)

	sqlPattern = regexp.MustCompile(
		`(?i)(\bunion\b.*\bselect\b|;\s*(drop|delete|insert|update|alter|create)\b|` +
			`'\s*or\s*'?\d*'?\s*=|--\s*$|/\*.*\*/)`,
	)

	// Instructions aimed at the summarization model.
	promptPattern = regexp.MustCompile(
		`(?i)(ignore\s+(previous|all|above)|system\s*prompt|you\s+are\s+now|` +
			`forget\s+(everything|all)|new\s+instructions)`,
	)
)

// RequestValidator screens user-supplied request values (form fields and
// query parameters, not document content).
type RequestValidator struct {
	// MaxValueLen bounds a single value. Zero means 1024.
	MaxValueLen int
}

// Check returns an error wrapping ErrSuspiciousInput naming the first
// offending field.
func (v RequestValidator) Check(values url.Values) error {
	limit := v.MaxValueLen
	if limit <= 0 {
		limit = 1024
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		for _, val := range values[k] {
			if len(val) > limit {
				return fmt.Errorf("field %q: value too long: %w", k, ErrSuspiciousInput)
			}
			if reason := classify(val); reason != "" {
				return fmt.Errorf("field %q: %s: %w", k, reason, ErrSuspiciousInput)
			}
		}
	}
	return nil
}

func classify(val string) string {
	switch {
	case traversalPattern.MatchString(val):
		return "path traversal"
	case scriptPattern.MatchString(val):
		return "script injection"
	case sqlPattern.MatchString(val):
		return "sql injection"
	case promptPattern.MatchString(val):
		return "prompt injection"
	}
	return ""
}
