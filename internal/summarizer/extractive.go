package summarizer

import (
	"sort"
	"strings"
	"unicode"
)

// ExtractivePrefix marks summaries built without the model.
const ExtractivePrefix = "[Extractive Summary] "

var sentenceCounts = map[Length]int{Brief: 2, Standard: 4, Detailed: 6}

var legalKeywords = map[string]bool{
	"agreement": true, "contract": true, "party": true, "parties": true,
	"shall": true, "must": true, "obligation": true, "obligations": true,
	"liability": true, "liable": true, "indemnify": true, "terminate": true,
	"termination": true, "payment": true, "pay": true, "term": true,
	"effective": true, "date": true, "breach": true, "warrant": true,
	"warranty": true, "governing": true, "law": true, "confidential": true,
	"rights": true, "license": true, "lease": true, "rent": true,
	"deadline": true, "notice": true,
}

var stopWords = map[string]bool{
	"the": true, "and": true, "that": true, "this": true, "with": true,
	"from": true, "have": true, "will": true, "been": true, "such": true,
	"which": true, "their": true, "there": true, "into": true, "than": true,
	"other": true, "under": true, "upon": true, "same": true, "were": true,
}

// maxRankedSentences bounds the sentence ranking work on huge inputs.
const maxRankedSentences = 2000

// rankSentences picks the n highest-scoring sentences and returns them in
// document order. A sentence scores by the mean normalized frequency of
// its content words, plus a boost per legal keyword and a bonus for
// appearing early.
func rankSentences(text string, n int) []string {
	sents := splitSentences(text)
	if len(sents) > maxRankedSentences {
		sents = sents[:maxRankedSentences]
	}
	if len(sents) <= n {
		return sents
	}

	tokenized := make([][]string, len(sents))
	freq := make(map[string]int)
	maxFreq := 0
	for i, s := range sents {
		tokenized[i] = contentWords(s)
		for _, w := range tokenized[i] {
			freq[w]++
			if freq[w] > maxFreq {
				maxFreq = freq[w]
			}
		}
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(sents))
	for i, words := range tokenized {
		var tf float64
		var legal int
		for _, w := range words {
			tf += float64(freq[w]) / float64(maxFreq)
			if legalKeywords[w] {
				legal++
			}
		}
		score := 0.0
		if len(words) > 0 {
			score = tf / float64(len(words))
		}
		score += 0.3 * float64(legal)
		score += 0.5 / float64(i+1)
		scores[i] = scored{idx: i, score: score}
	}

	sort.SliceStable(scores, func(a, b int) bool { return scores[a].score > scores[b].score })
	picked := scores[:n]
	sort.Slice(picked, func(a, b int) bool { return picked[a].idx < picked[b].idx })

	out := make([]string, 0, n)
	for _, p := range picked {
		out = append(out, sents[p.idx])
	}
	return out
}

func contentWords(s string) []string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := words[:0]
	for _, w := range words {
		if (len(w) > 3 && !stopWords[w]) || legalKeywords[w] {
			out = append(out, w)
		}
	}
	return out
}

// emergencySummary builds a model-free summary from the top-ranked
// sentences. The prefix counts against maxWords.
func emergencySummary(text string, length Length, maxWords int) string {
	n, ok := sentenceCounts[length]
	if !ok {
		n = sentenceCounts[Standard]
	}
	body := strings.Join(rankSentences(text, n), " ")
	if body != "" && !strings.ContainsAny(body[len(body)-1:], ".!?") {
		body += "."
	}
	budget := maxWords - wordCount(ExtractivePrefix)
	if budget < 1 {
		budget = 1
	}
	return ExtractivePrefix + truncateWords(body, budget)
}
