package services

import (
	"strings"
	"time"
)

// spreadsheetLayouts are tried in order when parsing source dates.
var spreadsheetLayouts = []string{
	"02/01/2006",
	"02-01-2006",
	"2006-01-02",
	"02/01/06",
	"02-01-06",
}

// ParseDate parses a spreadsheet date in any of the accepted formats.
// Returns nil for blank or unparseable input.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	// Excel sometimes appends a time component.
	if i := strings.IndexAny(s, " T"); i > 0 {
		s = s[:i]
	}
	for _, layout := range spreadsheetLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// ParseCnpqDate parses a DD/MM/YYYY date from the CNPq mirror, falling
// back to today on failure.
func ParseCnpqDate(s string) time.Time {
	t, err := time.Parse("02/01/2006", strings.TrimSpace(s))
	if err != nil {
		return time.Now()
	}
	return t
}

// SameDay reports whether two optional dates fall on the same calendar
// day. Two nil dates are equal.
func SameDay(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Format("2006-01-02") == b.Format("2006-01-02")
}
