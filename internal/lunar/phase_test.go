package lunar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAgeAtReference(t *testing.T) {
	ref := time.Date(2000, time.January, 6, 18, 14, 0, 0, time.UTC)
	assert.InDelta(t, 0, Age(ref), 1e-9)

	// One synodic month later the age wraps back to ~0.
	later := ref.Add(time.Duration(SynodicMonth * 24 * float64(time.Hour)))
	assert.InDelta(t, 0, Age(later), 1e-6)
}

func TestKnownFullMoon(t *testing.T) {
	// 2024-01-25 17:54 UTC was a full moon.
	full := time.Date(2024, time.January, 25, 17, 54, 0, 0, time.UTC)
	assert.Equal(t, PhaseFull, At(full))
	assert.True(t, IsFull(full))
	assert.Greater(t, Illumination(full), 0.95)
}

func TestKnownNewMoon(t *testing.T) {
	// 2024-01-11 11:57 UTC was a new moon.
	nm := time.Date(2024, time.January, 11, 11, 57, 0, 0, time.UTC)
	assert.Equal(t, PhaseNew, At(nm))
	assert.True(t, IsNew(nm))
	assert.Less(t, Illumination(nm), 0.05)
}

func TestAgeBeforeReferenceIsPositive(t *testing.T) {
	before := time.Date(1999, time.June, 1, 0, 0, 0, 0, time.UTC)
	age := Age(before)
	assert.GreaterOrEqual(t, age, 0.0)
	assert.Less(t, age, SynodicMonth)
}

func TestNextFullIsInFuture(t *testing.T) {
	now := time.Date(2024, time.March, 3, 12, 0, 0, 0, time.UTC)
	next := NextFull(now)
	assert.True(t, next.After(now))
	assert.Equal(t, PhaseFull, At(next))

	// From inside a full-moon segment the next full is roughly a month out,
	// not a point later in the same segment.
	full := time.Date(2024, time.January, 25, 17, 54, 0, 0, time.UTC)
	next = NextFull(full)
	assert.True(t, next.Sub(full) > 20*24*time.Hour)
	assert.True(t, next.Sub(full) < 35*24*time.Hour)
	assert.Equal(t, PhaseFull, At(next))
}
