// Package clean holds the string parsing and row-cleaning rules applied to
// house-sale transactions: the BBB rooms field, street addresses, structure
// age, sale prices, transfer months and the plausibility filter.
package clean

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// BBB holds the four parts of the auditor's "rooms - bedrooms - full baths -
// half baths" field, as text.
type BBB struct {
	Rooms     string
	Bedrooms  string
	FullBaths string
	HalfBaths string
}

// BBBCounts is the numeric form of a BBB field.
type BBBCounts struct {
	Rooms     int
	Bedrooms  int
	FullBaths int
	HalfBaths int
}

// ParseBBB splits a field of the form "R - B - F - H" by delimiter position:
// a value ends one character before the next hyphen and the next value starts
// two characters after it. Input with fewer than three hyphens or an empty
// part is rejected.
func ParseBBB(s string) (BBB, error) {
	var parts [3]string
	rest := s
	for i := range parts {
		idx := strings.Index(rest, "-")
		if idx < 1 || idx+2 > len(rest) {
			return BBB{}, eris.Errorf("bbb: malformed field %q", s)
		}
		parts[i] = strings.TrimSpace(rest[:idx-1])
		rest = rest[idx+2:]
	}
	b := BBB{
		Rooms:     parts[0],
		Bedrooms:  parts[1],
		FullBaths: parts[2],
		HalfBaths: strings.TrimSpace(rest),
	}
	if b.Rooms == "" || b.Bedrooms == "" || b.FullBaths == "" || b.HalfBaths == "" {
		return BBB{}, eris.Errorf("bbb: malformed field %q", s)
	}
	return b, nil
}

// Counts converts the four parts to integers.
func (b BBB) Counts() (BBBCounts, error) {
	var c BBBCounts
	for _, f := range []struct {
		name string
		raw  string
		dst  *int
	}{
		{"rooms", b.Rooms, &c.Rooms},
		{"bedrooms", b.Bedrooms, &c.Bedrooms},
		{"full baths", b.FullBaths, &c.FullBaths},
		{"half baths", b.HalfBaths, &c.HalfBaths},
	} {
		n, err := strconv.Atoi(f.raw)
		if err != nil {
			return BBBCounts{}, eris.Wrapf(err, "bbb: parse %s %q", f.name, f.raw)
		}
		*f.dst = n
	}
	return c, nil
}
