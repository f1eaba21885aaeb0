package generic

import (
	"strings"
	"time"
)

// =============================================================================
// CALENDAR - Attributes derived from a fact timestamp
// =============================================================================

// Calendar holds the time attributes derived from a date. The zero Calendar
// means the date was missing.
type Calendar struct {
	Month     int // 1-12
	Quarter   int // 1-4
	Year      int
	DayOfWeek string // "Monday".."Sunday"
}

// CalendarOf derives every attribute from t. Nothing else feeds it.
func CalendarOf(t time.Time) Calendar {
	m := int(t.Month())
	return Calendar{
		Month:     m,
		Quarter:   (m-1)/3 + 1,
		Year:      t.Year(),
		DayOfWeek: t.Weekday().String(),
	}
}

func (c Calendar) IsZero() bool { return c.Month == 0 }

// =============================================================================
// DATE PARSING
// =============================================================================

// DateLayouts are tried in order by ParseDate.
var DateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"1/2/2006",
	"01/02/2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// ParseDate parses s with the first matching layout in DateLayouts.
// Times without a zone are read as UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range DateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
