package clean

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

var currencyStripper = strings.NewReplacer("$", "", ",", "", " ", "")

// ParsePrice parses formatted currency text such as "$123,456.00".
func ParsePrice(s string) (float64, error) {
	cleaned := currencyStripper.Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return 0, eris.New("price: empty amount")
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "price: parse %q", s)
	}
	return v, nil
}
