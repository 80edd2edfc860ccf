package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"
)

// runeCounter counts one token per rune.
type runeCounter struct{}

func (runeCounter) CountTokens(text string) int { return utf8.RuneCountInString(text) }

func joinRanges(text string, chunks []Chunk) string {
	var sb strings.Builder
	for _, c := range chunks {
		sb.WriteString(text[c.Start:c.End])
	}
	return sb.String()
}

func checkInvariants(t *testing.T, text string, chunks []Chunk, tok Tokenizer, limit int) {
	t.Helper()
	if got := joinRanges(text, chunks); got != text {
		t.Errorf("ranges do not reproduce input:\n got %q\nwant %q", got, text)
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d: expected index %d, got %d", i, i, c.Index)
		}
		if c.Text != strings.TrimSpace(text[c.Start:c.End]) {
			t.Errorf("chunk %d: Text is not the trimmed range", i)
		}
		if c.Text == "" {
			t.Errorf("chunk %d: empty text", i)
		}
		if n := tok.CountTokens(c.Text); n > limit {
			t.Errorf("chunk %d: %d tokens exceeds limit %d", i, n, limit)
		}
		if c.Tokens != tok.CountTokens(c.Text) {
			t.Errorf("chunk %d: Tokens=%d, want %d", i, c.Tokens, tok.CountTokens(c.Text))
		}
	}
}

func TestSplit_SmallTextFitsOneChunk(t *testing.T) {
	text := "The Tenant shall pay rent on the first day of each month."
	chunks := Split(text, Heuristic{}, 1024)

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != text {
		t.Errorf("expected %q, got %q", text, chunks[0].Text)
	}
	checkInvariants(t, text, chunks, Heuristic{}, 1024)
}

func TestSplit_LargeTextRespectsLimit(t *testing.T) {
	para := strings.Repeat("The Licensee shall indemnify the Licensor against all claims. ", 20)
	text := strings.Repeat(para+"\n\n", 15)
	limit := 100

	chunks := Split(text, Heuristic{}, limit)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	checkInvariants(t, text, chunks, Heuristic{}, limit)
}

func TestSplit_PrefersParagraphBoundary(t *testing.T) {
	text := "Para one has five words.\n\nPara two has five words."
	chunks := Split(text, Heuristic{}, 8)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Text != "Para one has five words." {
		t.Errorf("chunk 0: got %q", chunks[0].Text)
	}
	if chunks[1].Text != "Para two has five words." {
		t.Errorf("chunk 1: got %q", chunks[1].Text)
	}
	checkInvariants(t, text, chunks, Heuristic{}, 8)
}

func TestSplit_PrefersSentenceBoundary(t *testing.T) {
	text := "First sentence here. Second sentence here."
	chunks := Split(text, Heuristic{}, 5)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Text != "First sentence here." {
		t.Errorf("chunk 0: got %q", chunks[0].Text)
	}
	checkInvariants(t, text, chunks, Heuristic{}, 5)
}

func TestSplit_SemicolonEndsClause(t *testing.T) {
	text := "the lessee pays rent; the lessor maintains roof"
	chunks := Split(text, Heuristic{}, 5)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Text != "the lessee pays rent;" {
		t.Errorf("chunk 0: got %q", chunks[0].Text)
	}
}

func TestSplit_FallsBackToWordBoundary(t *testing.T) {
	text := "alpha beta gamma delta"
	chunks := Split(text, Heuristic{}, 2)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Text != "alpha beta" || chunks[1].Text != "gamma delta" {
		t.Errorf("unexpected chunks: %q, %q", chunks[0].Text, chunks[1].Text)
	}
	checkInvariants(t, text, chunks, Heuristic{}, 2)
}

func TestSplit_FallsBackToRuneBoundary(t *testing.T) {
	text := "abcdéfghij"
	chunks := Split(text, runeCounter{}, 4)

	want := []string{"abcd", "éfgh", "ij"}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d", len(want), len(chunks))
	}
	for i, w := range want {
		if chunks[i].Text != w {
			t.Errorf("chunk %d: expected %q, got %q", i, w, chunks[i].Text)
		}
	}
	checkInvariants(t, text, chunks, runeCounter{}, 4)
}

func TestSplit_SurroundingWhitespaceIsKept(t *testing.T) {
	text := "\n\n  One two three. Four five six.  \n\n"
	chunks := Split(text, Heuristic{}, 3)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	checkInvariants(t, text, chunks, Heuristic{}, 3)
}

func TestSplit_WhitespaceOnly(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\n\t"} {
		if chunks := Split(text, Heuristic{}, 10); chunks != nil {
			t.Errorf("Split(%q): expected no chunks, got %d", text, len(chunks))
		}
	}
}

func TestSplit_FailsSoft(t *testing.T) {
	text := strings.Repeat("word ", 500)

	chunks := Split(text, nil, 10)
	if len(chunks) != 1 || chunks[0].Start != 0 || chunks[0].End != len(text) {
		t.Errorf("nil tokenizer: expected a single whole-text chunk, got %+v", chunks)
	}

	chunks = Split(text, Heuristic{}, 0)
	if len(chunks) != 1 {
		t.Errorf("zero limit: expected 1 chunk, got %d", len(chunks))
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"   ", 0},
		{"word", 1},
		{"three small words", 3},
		{strings.Repeat("w ", 100), 133},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}
