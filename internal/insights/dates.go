package insights

import (
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Day-first layouts tried before the general parser.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"02.01.2006",
	"02/01/06",
	"2 January 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Monday, 2 January 2006",
	time.RFC3339,
}

var (
	ordinalSuffix = regexp.MustCompile(`(?i)\b(\d{1,2})(st|nd|rd|th)\b`)
	dateFragments = []*regexp.Regexp{
		regexp.MustCompile(`\d{4}-\d{2}-\d{2}`),
		regexp.MustCompile(`\d{1,2}[/.\-]\d{1,2}[/.\-]\d{2,4}`),
		regexp.MustCompile(`(?i)\d{1,2}\s+[a-z]{3,9}\.?\s+\d{4}`),
		regexp.MustCompile(`(?i)[a-z]{3,9}\.?\s+\d{1,2},?\s+\d{4}`),
	}
)

// ParseDate reads a free-form, possibly day-first date such as "3 January
// 2026", "03/01/2026" or "Renewal due 3rd Jan 2026". Dates without a zone are
// taken as UTC.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(ordinalSuffix.ReplaceAllString(raw, "$1"))
	if s == "" {
		return time.Time{}, false
	}
	if t, ok := parseExact(s); ok {
		return t, true
	}
	for _, re := range dateFragments {
		if frag := re.FindString(s); frag != "" && frag != s {
			if t, ok := parseExact(frag); ok {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func parseExact(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), true
		}
	}
	// Slash dates are ambiguous; the layouts above already read them day-first.
	if strings.Count(s, "/") == 2 {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
