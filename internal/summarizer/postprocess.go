package summarizer

import (
	"regexp"
	"strings"
)

var boldMarkers = regexp.MustCompile(`\*\*(.*?)\*\*`)

var focusHeadings = map[Focus]struct {
	heading  string
	triggers []string
}{
	Obligations: {"Key Obligations: ", []string{"obligation", "shall"}},
	Parties:     {"Parties Involved: ", []string{"party", "parties", "client", "contractor"}},
	Dates:       {"Important Dates: ", []string{"date", "deadline", "due", "term"}},
}

var (
	datePattern = regexp.MustCompile(`(?i)\b(` +
		`(January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2}(st|nd|rd|th)?,?\s+\d{4}` +
		`|\d{1,2}(st|nd|rd|th)?\s+(January|February|March|April|May|June|July|August|September|October|November|December),?\s+\d{4}` +
		`|\d{1,2}/\d{1,2}/\d{2,4}` +
		`|\d{4}-\d{2}-\d{2}` +
		`|\d+\s+(business\s+)?(days|weeks|months|years)` +
		`)\b`)
	modalClause = regexp.MustCompile(`(?i)\b(shall|must|agrees? to|(is|are) required to|(is|are) obligated to)(\s+not)?\s+[a-z]+`)
	partyWord   = regexp.MustCompile(`(?i)\b(party|parties|tenant|landlord|lessor|lessee|licensor|licensee|buyer|seller|vendor|supplier|contractor|client|employer|employee|plaintiff|defendant|company|corporation)\b`)
)

// postProcess strips stray emphasis markers, adds the focus heading when
// the summary is about that focus, truncates to maxWords and finally
// highlights focus terms. Highlighting wraps existing words in ** and
// does not change the word count.
func postProcess(summary string, focus Focus, maxWords int) string {
	body := boldMarkers.ReplaceAllString(summary, "$1")
	body = strings.TrimSpace(strings.ReplaceAll(body, "**", ""))

	heading := ""
	if h, ok := focusHeadings[focus]; ok {
		lower := strings.ToLower(body)
		for _, t := range h.triggers {
			if strings.Contains(lower, t) {
				heading = h.heading
				break
			}
		}
	}

	budget := maxWords - wordCount(heading)
	if budget < 1 {
		budget = 1
	}
	body = truncateWords(body, budget)
	return heading + highlight(body, focus)
}

func highlight(text string, focus Focus) string {
	var re *regexp.Regexp
	switch focus {
	case Dates:
		re = datePattern
	case Obligations:
		re = modalClause
	case Parties:
		re = partyWord
	default:
		return text
	}
	return re.ReplaceAllString(text, "**$0**")
}
