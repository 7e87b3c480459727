package clean

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Age is the age of a structure at the time of sale.
type Age struct {
	Years    int  // transfer year minus year built; negative when sold before completion
	Floored  int  // Years clamped at zero
	Negative bool // Years < 0
}

// ComputeAge derives the age from the trailing four characters of the
// transfer date text and the year built.
func ComputeAge(transferDate string, yearBuilt int) (Age, error) {
	year, err := TransferYear(transferDate)
	if err != nil {
		return Age{}, err
	}
	years := year - yearBuilt
	return Age{
		Years:    years,
		Floored:  max(years, 0),
		Negative: years < 0,
	}, nil
}

// TransferYear reads the year from the last four characters of a date string.
func TransferYear(date string) (int, error) {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return 0, eris.Errorf("age: transfer date %q too short", date)
	}
	year, err := strconv.Atoi(date[len(date)-4:])
	if err != nil {
		return 0, eris.Wrapf(err, "age: transfer year of %q", date)
	}
	return year, nil
}
