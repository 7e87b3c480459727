package clean

import (
	"github.com/cat-astrophic/cincinnati-fc/internal/model"
)

// DropReason names the first plausibility check a row failed.
type DropReason string

const (
	DropZeroRooms     DropReason = "zero_rooms"
	DropZeroFullBaths DropReason = "zero_full_baths"
	DropZeroSqFt      DropReason = "zero_sq_ft"
	DropTooFar        DropReason = "too_far"
	DropIncomplete    DropReason = "incomplete"
)

// FilterPolicy configures the row plausibility cascade.
type FilterPolicy struct {
	// DistanceColumn holds the km distance to the reference landmark.
	// Empty disables the distance check.
	DistanceColumn string
	// MaxDistanceKm drops rows farther than this. <= 0 disables the check.
	MaxDistanceKm float64
	// DropIncomplete drops rows with any null cell left.
	DropIncomplete bool
}

// DefaultFilterPolicy drops rows more than 50 km from the reference landmark
// and rows with missing values.
func DefaultFilterPolicy(reference string) FilterPolicy {
	return FilterPolicy{
		DistanceColumn: reference,
		MaxDistanceKm:  50,
		DropIncomplete: true,
	}
}

// Check runs the cascade on one row. keep is false when a check fails, and
// reason names the first failing check.
func (p FilterPolicy) Check(t *model.Table, row int) (reason DropReason, keep bool) {
	if n, ok := t.Int(row, model.ColRooms); ok && n == 0 {
		return DropZeroRooms, false
	}
	if n, ok := t.Int(row, model.ColFullBaths); ok && n == 0 {
		return DropZeroFullBaths, false
	}
	if v, ok := t.Float(row, model.ColFinishedSqFt); ok && v == 0 {
		return DropZeroSqFt, false
	}
	if p.DistanceColumn != "" && p.MaxDistanceKm > 0 {
		if d, ok := t.Float(row, p.DistanceColumn); ok && d > p.MaxDistanceKm {
			return DropTooFar, false
		}
	}
	if p.DropIncomplete && !t.IsComplete(row) {
		return DropIncomplete, false
	}
	return "", true
}

// Filter returns the rows that pass every check, in their original order,
// and the number of rows dropped per reason.
func Filter(t *model.Table, p FilterPolicy) (*model.Table, map[DropReason]int) {
	dropped := make(map[DropReason]int)
	kept := t.Filter(func(row int) bool {
		reason, keep := p.Check(t, row)
		if !keep {
			dropped[reason]++
		}
		return keep
	})
	return kept, dropped
}
