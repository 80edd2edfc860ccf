package chunker

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tokenizer counts model tokens in a piece of text.
type Tokenizer interface {
	CountTokens(text string) int
}

// Chunk is a contiguous byte range of the source text.
type Chunk struct {
	Index  int    // Position in the chunk sequence.
	Start  int    // Byte offset of the range start.
	End    int    // Byte offset one past the range end.
	Text   string // The range with boundary whitespace trimmed.
	Tokens int    // Token count of Text.
}

// Split breaks text into chunks whose Text is at most limit tokens.
// Concatenating text[c.Start:c.End] over all chunks reproduces text.
// Cuts prefer paragraph breaks, then sentence ends, then word gaps, and
// only split inside a word when nothing else fits. A single rune that
// alone exceeds the limit still becomes its own chunk.
//
// A nil tokenizer or a non-positive limit returns the whole text as one
// chunk. Whitespace-only text returns no chunks.
func Split(text string, tok Tokenizer, limit int) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if tok == nil || limit <= 0 {
		c := newChunk(text, 0, 0, len(text), tok)
		return []Chunk{c}
	}

	var chunks []Chunk
	pos := 0
	for pos < len(text) {
		rest := text[pos:]
		if strings.TrimSpace(rest) == "" {
			// Trailing whitespace belongs to the last chunk.
			chunks[len(chunks)-1].End = len(text)
			break
		}
		if tok.CountTokens(strings.TrimSpace(rest)) <= limit {
			chunks = append(chunks, newChunk(text, len(chunks), pos, len(text), tok))
			break
		}
		end := cut(text, pos, tok, limit)
		chunks = append(chunks, newChunk(text, len(chunks), pos, end, tok))
		pos = end
	}
	return chunks
}

func newChunk(text string, index, start, end int, tok Tokenizer) Chunk {
	c := Chunk{
		Index: index,
		Start: start,
		End:   end,
		Text:  strings.TrimSpace(text[start:end]),
	}
	if tok != nil {
		c.Tokens = tok.CountTokens(c.Text)
	}
	return c
}

// cut returns the end offset of the next chunk starting at pos.
func cut(text string, pos int, tok Tokenizer, limit int) int {
	fits := func(end int) bool {
		return tok.CountTokens(strings.TrimSpace(text[pos:end])) <= limit
	}
	for _, bounds := range [][]int{
		paragraphBounds(text, pos),
		sentenceBounds(text, pos),
		wordBounds(text, pos),
	} {
		if end, ok := largestFitting(bounds, fits); ok {
			return end
		}
	}
	runes := runeBounds(text, pos)
	if end, ok := largestFitting(runes, fits); ok {
		return end
	}
	return runes[0]
}

// largestFitting binary-searches ascending candidate offsets for the
// largest one whose prefix fits. Token counts grow with the prefix.
func largestFitting(bounds []int, fits func(int) bool) (int, bool) {
	n := sort.Search(len(bounds), func(i int) bool { return !fits(bounds[i]) })
	if n == 0 {
		return 0, false
	}
	return bounds[n-1], true
}

// contentStart is the offset of the first non-space rune at or after pos.
// Cuts before it would yield an empty chunk.
func contentStart(text string, pos int) int {
	i := strings.IndexFunc(text[pos:], func(r rune) bool { return !unicode.IsSpace(r) })
	if i < 0 {
		return len(text)
	}
	return pos + i
}

// skipSpace returns the offset just past the whitespace run at i.
func skipSpace(text string, i int) int {
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !unicode.IsSpace(r) {
			break
		}
		i += size
	}
	return i
}

// paragraphBounds lists offsets just past each blank-line run.
func paragraphBounds(text string, pos int) []int {
	start := contentStart(text, pos)
	var out []int
	for i := start; i < len(text); {
		j := strings.Index(text[i:], "\n")
		if j < 0 {
			break
		}
		nl := i + j
		end := skipSpace(text, nl)
		if strings.Count(text[nl:end], "\n") >= 2 && end < len(text) {
			out = append(out, end)
		}
		i = end
	}
	return out
}

// sentenceBounds lists offsets just past the whitespace that follows a
// sentence terminator.
func sentenceBounds(text string, pos int) []int {
	start := contentStart(text, pos)
	var out []int
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?', ';':
		default:
			continue
		}
		if i+1 >= len(text) {
			break
		}
		r, _ := utf8.DecodeRuneInString(text[i+1:])
		if !unicode.IsSpace(r) {
			continue
		}
		if end := skipSpace(text, i+1); end < len(text) {
			out = append(out, end)
		}
	}
	return out
}

// wordBounds lists offsets just past each whitespace run.
func wordBounds(text string, pos int) []int {
	start := contentStart(text, pos)
	var out []int
	for i := start; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !unicode.IsSpace(r) {
			i += size
			continue
		}
		end := skipSpace(text, i)
		if end < len(text) {
			out = append(out, end)
		}
		i = end
	}
	return out
}

// runeBounds lists every rune boundary after the first content rune.
func runeBounds(text string, pos int) []int {
	start := contentStart(text, pos)
	var out []int
	for i := start; i < len(text); {
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
		out = append(out, i)
	}
	return out
}
