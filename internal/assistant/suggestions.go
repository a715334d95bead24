package assistant

import (
	"regexp"
	"strings"
)

// MaxSuggestions caps the parsed follow-up questions.
const MaxSuggestions = 4

var (
	markerRe  = regexp.MustCompile(`(?i)suggested questions:`)
	ordinalRe = regexp.MustCompile(`^\s*\d+[.)]\s*`)
)

// SplitSuggestions separates the answer from the trailing follow-up block.
// Without the marker the whole text is the answer.
func SplitSuggestions(text string) (answer string, suggestions []string) {
	loc := markerRe.FindStringIndex(text)
	if loc == nil {
		return strings.TrimSpace(text), nil
	}
	answer = strings.TrimSpace(text[:loc[0]])
	for _, line := range strings.Split(text[loc[1]:], "\n") {
		line = strings.TrimSpace(ordinalRe.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		suggestions = append(suggestions, line)
		if len(suggestions) == MaxSuggestions {
			break
		}
	}
	return answer, suggestions
}
