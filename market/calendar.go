package market

import (
	"time"

	"github.com/scmhub/calendar"
)

// Calendar answers session membership and session boundaries for the target
// exchange. Dates are interpreted in the exchange's local time zone.
type Calendar interface {
	// IsSession reports whether the exchange is open for trading on the
	// calendar day containing t.
	IsSession(t time.Time) bool

	// SessionFirstMinute returns the opening minute of the session on the
	// day containing t. The result is meaningful only if IsSession(t).
	SessionFirstMinute(t time.Time) time.Time

	// SessionLastMinute returns the closing minute of the session on the
	// day containing t.
	SessionLastMinute(t time.Time) time.Time

	// PreviousSession returns the most recent session day strictly before
	// the day containing t.
	PreviousSession(t time.Time) time.Time
}

// ExchangeCalendar implements Calendar on top of scmhub/calendar holiday
// data. Session boundaries use the exchange's regular hours; early closes
// are not modeled.
type ExchangeCalendar struct {
	cal        *calendar.Calendar
	loc        *time.Location
	openHour   int
	openMinute int
	closeHour  int
}

// NYSE returns a calendar for the New York Stock Exchange with regular
// 09:30-16:00 hours. If the holiday data for the XNYS MIC cannot be loaded
// the calendar degrades to plain weekdays.
func NYSE() *ExchangeCalendar {
	cal := calendar.GetCalendar("xnys")

	loc := time.UTC
	if cal != nil {
		loc = cal.Loc
	} else if ny, err := time.LoadLocation("America/New_York"); err == nil {
		loc = ny
	}

	return &ExchangeCalendar{
		cal:        cal,
		loc:        loc,
		openHour:   9,
		openMinute: 30,
		closeHour:  16,
	}
}

// Location returns the exchange's time zone.
func (c *ExchangeCalendar) Location() *time.Location {
	return c.loc
}

func (c *ExchangeCalendar) IsSession(t time.Time) bool {
	t = t.In(c.loc)
	if c.cal == nil {
		wd := t.Weekday()
		return wd != time.Saturday && wd != time.Sunday
	}
	return c.cal.IsBusinessDay(t)
}

func (c *ExchangeCalendar) SessionFirstMinute(t time.Time) time.Time {
	t = t.In(c.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), c.openHour, c.openMinute, 0, 0, c.loc)
}

func (c *ExchangeCalendar) SessionLastMinute(t time.Time) time.Time {
	t = t.In(c.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), c.closeHour, 0, 0, 0, c.loc)
}

func (c *ExchangeCalendar) PreviousSession(t time.Time) time.Time {
	day := t.In(c.loc)
	for {
		day = day.AddDate(0, 0, -1)
		if c.IsSession(day) {
			return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, c.loc)
		}
	}
}
