package clean

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Month is a calendar month used to join transactions against CPI ratios.
type Month struct {
	Year  int
	Month time.Month
}

// String formats the month as M/YYYY.
func (m Month) String() string {
	return fmt.Sprintf("%d/%d", int(m.Month), m.Year)
}

// Before reports whether m is earlier than o.
func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

var monthLayouts = []string{
	"1/2/2006",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"2006-01-02 15:04:05",
	"2006-01",
	"1/2006",
}

// ParseMonth extracts the month from a transfer or observation date in
// M/D/YYYY, YYYY-MM-DD, YYYY-MM or M/YYYY form.
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	for _, layout := range monthLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Month{Year: t.Year(), Month: t.Month()}, nil
		}
	}
	return Month{}, eris.Errorf("month: unrecognised date %q", s)
}
