package assistant

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/suPer8Hu/estate-chat/internal/property"
)

const (
	// MaxContextProperties bounds how many listings are described to the model.
	MaxContextProperties = 5
	// MaxContextRunes bounds the grounding context length.
	MaxContextRunes = 2000
)

const SystemInstruction = "You are a concise real-estate assistant helping home buyers in India. " +
	"Answer using only the listings given in the context and never invent properties, prices or locations. " +
	"Keep the answer short. End your reply with a line that says \"Suggested questions:\" followed by " +
	"exactly four short follow-up questions the user could ask next, numbered 1 to 4, one per line."

const NoMatchesContext = "No matching properties were found in the catalog for this query. " +
	"Say so plainly, do not describe any listing, and suggest how the user could broaden the search."

// GroundingContext summarizes up to MaxContextProperties listings, one per
// line, stopping before the text would exceed MaxContextRunes.
func GroundingContext(props []property.Property) string {
	if len(props) == 0 {
		return NoMatchesContext
	}
	var b strings.Builder
	b.WriteString("Matching properties:\n")
	used := utf8.RuneCountInString(b.String())
	for i, p := range props {
		if i == MaxContextProperties {
			break
		}
		line := fmt.Sprintf("%d. %s | %s | %s | %s\n", i+1, p.Title, p.BedroomRange(), p.PriceRange(), p.Location)
		n := utf8.RuneCountInString(line)
		if used+n > MaxContextRunes {
			if i == 0 {
				// always describe at least the best match
				line = truncateRunes(line, MaxContextRunes-used)
				b.WriteString(line)
			}
			break
		}
		b.WriteString(line)
		used += n
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func userPrompt(grounding, text string) string {
	return "Context:\n" + grounding + "\n\nUser question: " + strings.TrimSpace(text)
}
