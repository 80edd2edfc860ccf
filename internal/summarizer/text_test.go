package summarizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitSentences(t *testing.T) {
	got := splitSentences("Acme Inc. hired Dr. Smith. Is it binding? Yes! Trailing clause")
	assert.Equal(t, []string{
		"Acme Inc. hired Dr. Smith.",
		"Is it binding?",
		"Yes!",
		"Trailing clause",
	}, got)
}

func TestTruncateWords(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"under limit", "One two. Three.", 10, "One two. Three."},
		{"sentence boundary", "One two three. Four five six. Seven eight nine ten", 8, "One two three. Four five six."},
		{"boundary too early", "One. Two three four five six seven eight nine", 6, "One. Two three four five six..."},
		{"no boundary", "alpha beta gamma delta epsilon", 3, "alpha beta gamma..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateWords(tt.in, tt.max)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, wordCount(got), tt.max)
		})
	}
}

func TestMerge(t *testing.T) {
	got := merge([]string{
		"Summarize the following legal document, focusing specifically on the parties involved, their roles, and relationships: The Buyer purchases goods.",
		"This document is a legal document. The buyer purchases goods! In conclusion, payment is due in 30 days.",
	})
	assert.Equal(t, "The Buyer purchases goods. Payment is due in 30 days.", got)
}

func TestHighlightKeepsWordCount(t *testing.T) {
	text := "The Tenant must not sublet. The Landlord shall repair the roof by 03/15/2025 within 10 business days."
	for _, f := range []Focus{General, Obligations, Parties, Dates} {
		out := highlight(text, f)
		assert.Equal(t, wordCount(text), wordCount(out), "focus %s", f)
	}
	assert.Contains(t, highlight(text, Obligations), "**must not sublet**")
	assert.Contains(t, highlight(text, Parties), "**Tenant**")
	assert.Contains(t, highlight(text, Dates), "**03/15/2025**")
	assert.Contains(t, highlight(text, Dates), "**10 business days**")
}

func TestPostProcess_StripsMarkersBeforeTruncating(t *testing.T) {
	out := postProcess("**The parties** agree. "+strings.Repeat("word ", 100), Parties, 50)
	assert.True(t, strings.HasPrefix(out, "Parties Involved: The **parties** agree."))
	assert.LessOrEqual(t, wordCount(out), 50)
}

func TestRankSentences_KeepsDocumentOrder(t *testing.T) {
	text := "The weather was pleasant. The Tenant shall pay rent under this agreement. " +
		"Birds sang outside. The Landlord shall indemnify the Tenant against liability. Lunch was served."
	got := rankSentences(text, 2)
	assert.Equal(t, []string{
		"The Tenant shall pay rent under this agreement.",
		"The Landlord shall indemnify the Tenant against liability.",
	}, got)
}

func TestEmergencySummary(t *testing.T) {
	out := emergencySummary(strings.Repeat("The Tenant shall pay rent on time each month. ", 20), Detailed, 50)
	assert.True(t, strings.HasPrefix(out, ExtractivePrefix))
	assert.LessOrEqual(t, wordCount(out), 50)
}
