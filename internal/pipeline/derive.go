package pipeline

import (
	"go.uber.org/zap"

	"github.com/cat-astrophic/cincinnati-fc/internal/clean"
	"github.com/cat-astrophic/cincinnati-fc/internal/model"
)

// Counter names reported in stage results.
const (
	CounterBBBMalformed   = "bbb_malformed"
	CounterAddressMissing = "address_missing"
	CounterAgeInvalid     = "age_invalid"
	CounterNegativeAge    = "negative_age"
	CounterPriceInvalid   = "price_invalid"
)

// DeriveRooms splits BBB into Rooms, Bedrooms, Full Baths and Half Baths.
// A malformed field leaves the four columns null for that row.
func DeriveRooms(t *model.Table, res *model.StageResult) {
	cols := []string{model.ColRooms, model.ColBedrooms, model.ColFullBaths, model.ColHalfBaths}
	for _, c := range cols {
		t.EnsureColumn(c)
	}

	for i := range t.Len() {
		counts, err := parseCounts(t.Get(i, model.ColBBB))
		if err != nil {
			zap.L().Debug("pipeline: malformed BBB",
				zap.String("parcel", t.Get(i, model.ColParcel)),
				zap.Error(err),
			)
			res.Inc(CounterBBBMalformed)
			for _, c := range cols {
				t.SetNull(i, c)
			}
			continue
		}
		t.SetInt(i, model.ColRooms, counts.Rooms)
		t.SetInt(i, model.ColBedrooms, counts.Bedrooms)
		t.SetInt(i, model.ColFullBaths, counts.FullBaths)
		t.SetInt(i, model.ColHalfBaths, counts.HalfBaths)
	}
}

func parseCounts(s string) (clean.BBBCounts, error) {
	b, err := clean.ParseBBB(s)
	if err != nil {
		return clean.BBBCounts{}, err
	}
	return b.Counts()
}

// DropMissingAddress removes rows whose Address is blank.
func DropMissingAddress(t *model.Table, res *model.StageResult) *model.Table {
	kept := t.Filter(func(row int) bool { return !t.IsNull(row, model.ColAddress) })
	if dropped := t.Len() - kept.Len(); dropped > 0 {
		res.Add(CounterAddressMissing, dropped)
	}
	return kept
}

// DeriveAddresses writes the geocodable one-line address to Addresses.
func DeriveAddresses(t *model.Table, locality string) {
	t.EnsureColumn(model.ColAddresses)
	for i := range t.Len() {
		t.Set(i, model.ColAddresses, clean.NormalizeAddress(t.Get(i, model.ColAddress), locality))
	}
}

// DeriveAge writes Age, Age Floored and Negative Age from the transfer date
// and year built. Rows where either is unreadable get nulls.
func DeriveAge(t *model.Table, res *model.StageResult) {
	for _, c := range []string{model.ColAge, model.ColAgeFloored, model.ColNegativeAge} {
		t.EnsureColumn(c)
	}

	for i := range t.Len() {
		built, ok := t.Int(i, model.ColYearBuilt)
		if !ok {
			res.Inc(CounterAgeInvalid)
			continue
		}
		age, err := clean.ComputeAge(t.Get(i, model.ColTransferDate), built)
		if err != nil {
			res.Inc(CounterAgeInvalid)
			continue
		}
		if age.Negative {
			res.Inc(CounterNegativeAge)
		}
		t.SetInt(i, model.ColAge, age.Years)
		t.SetInt(i, model.ColAgeFloored, age.Floored)
		t.SetBool(i, model.ColNegativeAge, age.Negative)
	}
}

// DerivePrice parses Sale Amount into Price. Unparsable amounts are null.
func DerivePrice(t *model.Table, res *model.StageResult) {
	t.EnsureColumn(model.ColPrice)
	for i := range t.Len() {
		v, err := clean.ParsePrice(t.Get(i, model.ColSaleAmount))
		if err != nil {
			res.Inc(CounterPriceInvalid)
			continue
		}
		t.SetFloat(i, model.ColPrice, v)
	}
}
