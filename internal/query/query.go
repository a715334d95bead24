// Package query turns free-text property questions into search criteria.
package query

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Criteria is the structured projection of a user query. A nil pointer or an
// empty slice means the signal was absent and the matching filter must not be
// applied.
type Criteria struct {
	Bedrooms *int   `json:"bedrooms,omitempty"`
	PriceMax *int64 `json:"price_max,omitempty"`
	// Amenities are advisory: recorded for annotation, never used as a filter.
	Amenities []string `json:"amenities,omitempty"`
	// Terms are the leftover words used for full-text matching.
	Terms []string `json:"terms,omitempty"`
}

func (c Criteria) Empty() bool {
	return c.Bedrooms == nil && c.PriceMax == nil && len(c.Terms) == 0
}

var (
	bhkRe   = regexp.MustCompile(`(?i)(\d+)\s*bhk\b`)
	// the number must not continue a longer one, so ".5" is not read as "5"
	priceRe = regexp.MustCompile(`(?i)(?:^|[^\p{N}.])(\d*\.?\d+)\s*(crores?|lakhs?|million|k)\b`)
	wordRe  = regexp.MustCompile(`[\p{L}\p{N}]+`)
)

var unitMultiplier = map[string]float64{
	"crore":   1e7,
	"lakh":    1e5,
	"k":       1e3,
	"million": 1e6,
}

// AmenityKeywords are matched as case-insensitive substrings.
var AmenityKeywords = []string{"gym", "parking", "pool", "lift", "garden", "playground"}

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "in": {}, "at": {}, "near": {}, "of": {}, "for": {},
	"to": {}, "and": {}, "or": {}, "with": {}, "under": {}, "below": {}, "within": {},
	"upto": {}, "up": {}, "less": {}, "than": {}, "max": {}, "budget": {}, "around": {},
	"me": {}, "show": {}, "find": {}, "i": {}, "want": {}, "need": {}, "looking": {},
	"any": {}, "some": {}, "is": {}, "are": {}, "there": {}, "please": {}, "flat": {},
	"flats": {}, "apartment": {}, "apartments": {}, "property": {}, "properties": {},
	"home": {}, "homes": {}, "house": {}, "rs": {}, "inr": {},
	"what": {}, "which": {}, "do": {}, "does": {}, "you": {}, "your": {}, "have": {},
	"has": {}, "got": {}, "can": {}, "could": {}, "would": {}, "get": {}, "give": {},
	"tell": {}, "list": {}, "my": {}, "we": {}, "us": {}, "our": {}, "it": {},
	"this": {}, "that": {}, "be": {}, "am": {}, "on": {}, "from": {}, "by": {},
	"about": {}, "like": {}, "how": {}, "much": {}, "many": {}, "all": {}, "only": {},
	"something": {}, "options": {}, "available": {}, "buy": {}, "hi": {}, "hello": {},
}

// Interpret never fails; unmatched signals are left unset.
func Interpret(text string) Criteria {
	var c Criteria
	residual := text

	if m := bhkRe.FindStringSubmatchIndex(text); m != nil {
		if n, err := strconv.Atoi(text[m[2]:m[3]]); err == nil {
			c.Bedrooms = &n
		}
		residual = blank(residual, m[0], m[1])
	}

	if m := priceRe.FindStringSubmatchIndex(text); m != nil {
		if v, ok := NormalizePrice(text[m[2]:m[3]], text[m[4]:m[5]]); ok {
			c.PriceMax = &v
		}
		residual = blank(residual, m[0], m[1])
	}

	lower := strings.ToLower(text)
	for _, kw := range AmenityKeywords {
		if strings.Contains(lower, kw) {
			c.Amenities = append(c.Amenities, kw)
		}
	}

	// amenity words stay out of Terms so they cannot act as a filter
	seen := make(map[string]struct{}, len(AmenityKeywords))
	for _, kw := range AmenityKeywords {
		seen[kw] = struct{}{}
	}
	for _, w := range wordRe.FindAllString(strings.ToLower(residual), -1) {
		if _, skip := stopwords[w]; skip {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		c.Terms = append(c.Terms, w)
	}
	return c
}

// NormalizePrice converts "1.5" + "crore" into 15000000. Plural units are
// accepted; values outside int64 are rejected.
func NormalizePrice(number, unit string) (int64, bool) {
	unit = strings.ToLower(unit)
	mult, ok := unitMultiplier[unit]
	if !ok {
		mult, ok = unitMultiplier[strings.TrimSuffix(unit, "s")]
	}
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0, false
	}
	f := math.Round(v * mult)
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// blank replaces s[from:to] with spaces so later offsets stay valid.
func blank(s string, from, to int) string {
	return s[:from] + strings.Repeat(" ", to-from) + s[to:]
}
