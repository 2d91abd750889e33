// Package lunar computes moon phases. The lunar_hold policy buys near the
// new moon and liquidates near the full moon.
package lunar

import (
	"math"
	"time"
)

// SynodicMonth is the mean length of a lunation in days.
const SynodicMonth = 29.530588853

// referenceNewMoon is a known new moon instant (2000-01-06 18:14 UTC).
var referenceNewMoon = time.Date(2000, time.January, 6, 18, 14, 0, 0, time.UTC)

// Phase is a named segment of the lunar cycle.
type Phase string

const (
	PhaseNew            Phase = "new"
	PhaseWaxingCrescent Phase = "waxing_crescent"
	PhaseFirstQuarter   Phase = "first_quarter"
	PhaseWaxingGibbous  Phase = "waxing_gibbous"
	PhaseFull           Phase = "full"
	PhaseWaningGibbous  Phase = "waning_gibbous"
	PhaseLastQuarter    Phase = "last_quarter"
	PhaseWaningCrescent Phase = "waning_crescent"
)

// Age returns the days elapsed since the last new moon, in [0, SynodicMonth).
func Age(t time.Time) float64 {
	days := t.Sub(referenceNewMoon).Hours() / 24
	age := math.Mod(days, SynodicMonth)
	if age < 0 {
		age += SynodicMonth
	}
	return age
}

// Fraction returns the cycle position in [0, 1): 0 is new, 0.5 is full.
func Fraction(t time.Time) float64 {
	return Age(t) / SynodicMonth
}

// At returns the named phase for the given instant. Boundaries split the
// cycle into eight equal segments centered on the principal phases.
func At(t time.Time) Phase {
	f := Fraction(t)
	switch {
	case f < 0.0625 || f >= 0.9375:
		return PhaseNew
	case f < 0.1875:
		return PhaseWaxingCrescent
	case f < 0.3125:
		return PhaseFirstQuarter
	case f < 0.4375:
		return PhaseWaxingGibbous
	case f < 0.5625:
		return PhaseFull
	case f < 0.6875:
		return PhaseWaningGibbous
	case f < 0.8125:
		return PhaseLastQuarter
	default:
		return PhaseWaningCrescent
	}
}

// IsNew reports whether t falls in the new-moon segment.
func IsNew(t time.Time) bool { return At(t) == PhaseNew }

// IsFull reports whether t falls in the full-moon segment.
func IsFull(t time.Time) bool { return At(t) == PhaseFull }

// Illumination returns the illuminated fraction of the moon's disc in [0, 1].
func Illumination(t time.Time) float64 {
	return (1 - math.Cos(2*math.Pi*Fraction(t))) / 2
}

// NextFull returns the next instant at the middle of the full-moon segment
// strictly after t.
func NextFull(t time.Time) time.Time {
	f := Fraction(t)
	delta := 0.5 - f
	// At or past the start of the full segment, the next full is a whole
	// lunation away.
	if f >= 0.4375 {
		delta += 1
	}
	return t.Add(time.Duration(delta * SynodicMonth * 24 * float64(time.Hour)))
}
