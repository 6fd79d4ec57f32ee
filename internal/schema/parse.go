package schema

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Grouped thousands must carry at least one comma group, otherwise "1234"
// would stop at "123".
var numberRe = regexp.MustCompile(`[-+]?(?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d+)?`)

// ParseNumber returns the first number found in text after dropping currency
// dollar signs, percent signs and thousands separators. Full-width and other
// compatibility digits are folded to ASCII first. It returns nil when no
// number is present.
func ParseNumber(text string) *float64 {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	s := norm.NFKC.String(text)
	s = strings.NewReplacer("$", "", "%", "").Replace(s)
	m := numberRe.FindString(s)
	if m == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil {
		return nil
	}
	return &v
}

// Slash and dash dates are read month first.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-1-2",
	"2006/1/2",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"1-2-2006",
	"01/02/06",
	"1/2/06",
	"2 Jan 2006",
	"02 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	time.RFC3339,
}

// ParseDate returns the ISO date (YYYY-MM-DD) when the whole trimmed text is
// a date in one of the supported layouts, and nil otherwise.
func ParseDate(text string) *string {
	s := strings.TrimSpace(text)
	if s == "" || len(s) > 40 {
		return nil
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		iso := t.Format("2006-01-02")
		return &iso
	}
	return nil
}
