package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNYSECalendar(t *testing.T) {
	t.Parallel()

	cal := NYSE()
	loc := cal.Location()
	require.NotNil(t, loc)

	// A regular Wednesday.
	wednesday := time.Date(2026, time.June, 10, 12, 0, 0, 0, loc)
	assert.True(t, cal.IsSession(wednesday))

	saturday := time.Date(2026, time.June, 13, 12, 0, 0, 0, loc)
	assert.False(t, cal.IsSession(saturday))

	sunday := time.Date(2026, time.June, 14, 12, 0, 0, 0, loc)
	assert.False(t, cal.IsSession(sunday))
}

func TestSessionBounds(t *testing.T) {
	t.Parallel()

	cal := NYSE()
	loc := cal.Location()

	day := time.Date(2026, time.June, 10, 12, 34, 56, 0, loc)

	first := cal.SessionFirstMinute(day)
	assert.Equal(t, 9, first.Hour())
	assert.Equal(t, 30, first.Minute())
	assert.Equal(t, day.Day(), first.Day())

	last := cal.SessionLastMinute(day)
	assert.Equal(t, 16, last.Hour())
	assert.Equal(t, 0, last.Minute())
	assert.True(t, first.Before(last))
}

func TestPreviousSession(t *testing.T) {
	t.Parallel()

	cal := NYSE()
	loc := cal.Location()

	// From a Monday the previous session is the prior Friday.
	monday := time.Date(2026, time.June, 15, 12, 0, 0, 0, loc)
	prev := cal.PreviousSession(monday)

	assert.Equal(t, time.Friday, prev.Weekday())
	assert.Equal(t, 12, prev.Day())
	assert.True(t, prev.Before(monday))
	assert.True(t, cal.IsSession(prev))
}
