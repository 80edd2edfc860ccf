package summarizer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// abbreviations never end a sentence.
var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "inc": true, "ltd": true,
	"co": true, "corp": true, "no": true, "vs": true, "v": true, "e.g": true,
	"i.e": true, "etc": true, "art": true, "sec": true, "u.s": true, "st": true,
}

// splitSentences splits text after '.', '!' or '?' followed by
// whitespace, skipping common abbreviations. Sentences are trimmed.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i < len(text) {
			next, _ := utf8.DecodeRuneInString(text[i:])
			if !unicode.IsSpace(next) {
				continue
			}
		}
		if r == '.' && isAbbreviation(text[start:i-1]) {
			continue
		}
		if s := strings.TrimSpace(text[start:i]); s != "" {
			out = append(out, s)
		}
		start = i
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

func isAbbreviation(before string) bool {
	fields := strings.Fields(before)
	if len(fields) == 0 {
		return false
	}
	last := strings.ToLower(strings.TrimLeft(fields[len(fields)-1], "(\"'"))
	return abbreviations[last]
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

// normalize reduces a sentence to lower-case letters and digits for
// duplicate detection.
func normalize(s string) string {
	var sb strings.Builder
	space := false
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteRune(r)
			space = false
		default:
			space = true
		}
	}
	return sb.String()
}

// firstSentences returns the first n sentences of text joined by spaces,
// ending in a period.
func firstSentences(text string, n int) string {
	sents := splitSentences(text)
	if len(sents) > n {
		sents = sents[:n]
	}
	out := strings.Join(sents, " ")
	if out != "" && !strings.ContainsAny(out[len(out)-1:], ".!?") {
		out += "."
	}
	return out
}

// truncateWords limits s to maxWords words. It cuts after the last
// complete sentence when that keeps at least half the budget, otherwise
// at a word boundary with "..." appended. Whitespace is normalized to
// single spaces when a cut happens.
func truncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if maxWords <= 0 || len(words) <= maxWords {
		return s
	}
	words = words[:maxWords]
	for k := len(words); k >= (maxWords+1)/2 && k > 0; k-- {
		if endsSentence(words[k-1]) {
			return strings.Join(words[:k], " ")
		}
	}
	return strings.Join(words, " ") + "..."
}

func endsSentence(word string) bool {
	w := strings.TrimRight(word, "\"')]*")
	if w == "" {
		return false
	}
	switch w[len(w)-1] {
	case '.', '!', '?':
		return !abbreviations[strings.ToLower(strings.TrimSuffix(w, "."))]
	}
	return false
}
