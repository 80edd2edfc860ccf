package summarizer

import (
	"regexp"
	"strings"
)

var (
	echoedPrompt = regexp.MustCompile(`(?i)summarize the following legal document[^:]*:\s*`)
	leadIn       = regexp.MustCompile(`(?i)^(in summary|in conclusion|to summarize|to sum up|overall|summary)\s*[,:]\s*`)
	metaSentence = regexp.MustCompile(`(?i)^(this|the) (document|text|summary) (is|contains|provides|describes) (a|an|the) (legal )?(document|text|summary|overview)\b[^.]*\.?$`)
)

// merge concatenates chunk summaries into one text. Echoed prompt text
// and boilerplate lead-ins are removed and sentences already emitted are
// dropped.
func merge(summaries []string) string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range summaries {
		s = echoedPrompt.ReplaceAllString(s, "")
		for _, sent := range splitSentences(s) {
			sent = strings.TrimSpace(leadIn.ReplaceAllString(sent, ""))
			if sent == "" || metaSentence.MatchString(sent) {
				continue
			}
			sent = capitalize(sent)
			key := normalize(sent)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, sent)
		}
	}
	return strings.Join(out, " ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	first := s[0]
	if first >= 'a' && first <= 'z' {
		return string(first-'a'+'A') + s[1:]
	}
	return s
}
