package parser

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	multiBlank = regexp.MustCompile(`\n{3,}`)
	inlineWS   = regexp.MustCompile(`[ \t\f\v\x{00A0}]+`)
)

// Clean normalizes extracted text: line breaks become \n, control
// characters are dropped, runs of spaces collapse to one and at most one
// blank line separates paragraphs.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.Map(func(r rune) rune {
		switch {
		case r == '\uFEFF':
			return -1
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, text)

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(inlineWS.ReplaceAllString(line, " "))
	}
	text = strings.Join(lines, "\n")
	text = multiBlank.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

var legalTerms = []string{
	"agreement", "contract", "party", "parties", "hereby", "whereas",
	"shall", "pursuant", "liability", "indemnify", "terminate", "termination",
	"governing law", "jurisdiction", "clause", "section", "herein",
	"obligation", "warrant", "covenant", "plaintiff", "defendant", "court",
	"statute", "lease", "licensor", "licensee", "tenant", "landlord",
}

var legalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bsection\s+\d+(\.\d+)*`),
	regexp.MustCompile(`(?i)\barticle\s+([ivxlc]+|\d+)\b`),
	regexp.MustCompile(`§\s*\d+`),
	regexp.MustCompile(`(?i)\bin witness whereof\b`),
	regexp.MustCompile(`(?i)\bv\.\s+[A-Z]`),
}

// LooksLegal reports whether text reads like a legal document: at least
// three distinct legal terms, or one term plus a structural citation.
func LooksLegal(text string) bool {
	lower := strings.ToLower(text)
	terms := 0
	for _, term := range legalTerms {
		if strings.Contains(lower, term) {
			terms++
		}
	}
	if terms >= 3 {
		return true
	}
	if terms == 0 {
		return false
	}
	for _, re := range legalPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
