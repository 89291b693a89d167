// Package pseudotime anchors relative offsets to the dataset-wide origin.
//
// INSPIRE records only offsets from each patient's (unknown) admission and
// de-identified ages. Every offset is placed on one shared timeline starting
// at Origin, so differences between pseudotimes are meaningful while the
// absolute values are not.
package pseudotime

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	EnrollmentStart = time.Date(2011, time.January, 1, 0, 0, 0, 0, time.UTC)
	EnrollmentEnd   = time.Date(2020, time.December, 31, 0, 0, 0, 0, time.UTC)

	// Origin is the midpoint of the enrollment window (2016-01-01T00:00:00Z).
	Origin = EnrollmentStart.Add(EnrollmentEnd.Sub(EnrollmentStart) / 2)
)

const (
	daysPerYear     = 365.25
	microsPerDay    = 24 * 60 * 60 * 1e6
	microsPerMinute = 60 * 1e6
	maxMicros       = 1 << 63
)

type Unit string

const (
	Minutes Unit = "minutes"
	Days    Unit = "days"
)

func ParseUnit(s string) (Unit, error) {
	switch Unit(strings.ToLower(strings.TrimSpace(s))) {
	case "", Minutes:
		return Minutes, nil
	case Days:
		return Days, nil
	default:
		return "", fmt.Errorf("unknown offset unit %q", s)
	}
}

// Micros converts an offset in the unit to whole microseconds. It reports
// false when the result does not fit in an int64.
func (u Unit) Micros(offset float64) (int64, bool) {
	per := microsPerMinute
	if u == Days {
		per = microsPerDay
	}
	us := math.Round(offset * per)
	// float64(math.MaxInt64) rounds up to 2^63, which is already out of range
	if math.IsNaN(us) || us >= maxMicros || us < -maxMicros {
		return 0, false
	}
	return int64(us), true
}

// shift returns t moved by us microseconds, or false on int64 overflow of
// the microsecond timeline.
func shift(t time.Time, us int64) (time.Time, bool) {
	base := t.UnixMicro()
	sum := base + us
	if (us > 0 && sum < base) || (us < 0 && sum > base) {
		return time.Time{}, false
	}
	return time.UnixMicro(sum).UTC(), true
}

// Offset is an optional numeric offset; Valid is false when the source cell
// was empty or unparseable.
type Offset struct {
	Value float64
	Valid bool
}

// ParseOffset reads a numeric cell. Empty text, NaN and infinities are not valid offsets.
func ParseOffset(s string) Offset {
	s = strings.TrimSpace(s)
	if s == "" {
		return Offset{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Offset{}
	}
	return Offset{Value: v, Valid: true}
}

// FromOffset returns origin + offset, or false when the offset is missing
// or too large to place on the microsecond timeline.
func FromOffset(origin time.Time, o Offset, unit Unit) (time.Time, bool) {
	if !o.Valid {
		return time.Time{}, false
	}
	us, ok := unit.Micros(o.Value)
	if !ok {
		return time.Time{}, false
	}
	return shift(origin, us)
}

// BirthFromAge places the birth at the middle of the stated age-year:
// origin - (age*365.25 - 365.25/2) days.
func BirthFromAge(origin time.Time, age Offset) (time.Time, bool) {
	if !age.Valid {
		return time.Time{}, false
	}
	days := age.Value*daysPerYear - daysPerYear/2
	us, ok := Days.Micros(-days)
	if !ok {
		return time.Time{}, false
	}
	return shift(origin, us)
}

// EarliestDeath picks the earlier of two optional death offsets. A missing
// offset never wins over a recorded one.
func EarliestDeath(inHospital, allCause Offset) Offset {
	switch {
	case inHospital.Valid && allCause.Valid:
		if allCause.Value < inHospital.Value {
			return allCause
		}
		return inHospital
	case inHospital.Valid:
		return inHospital
	default:
		return allCause
	}
}
