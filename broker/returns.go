package broker

import (
	"sort"
	"time"
)

type dayGain struct {
	day  time.Time
	gain float64
}

// ReturnStream aggregates realized position gains and account events into a
// per-day gain series for return reporting.
type ReturnStream struct {
	initial float64
	gains   []dayGain
}

// NewReturnStream groups closed-position gains and account adjustments by
// calendar day, ordered ascending.
func NewReturnStream(initial float64, closed []ClosedPosition, events []AccountEvent) *ReturnStream {
	byDay := make(map[time.Time]float64)
	for _, pos := range closed {
		day := truncateDay(pos.TimeClosed)
		byDay[day] += pos.Proceeds - pos.CostBasis
	}
	for _, ev := range events {
		day := truncateDay(ev.Date)
		byDay[day] += ev.Amount
	}

	gains := make([]dayGain, 0, len(byDay))
	for day, gain := range byDay {
		gains = append(gains, dayGain{day: day, gain: gain})
	}
	sort.Slice(gains, func(i, j int) bool { return gains[i].day.Before(gains[j].day) })

	return &ReturnStream{initial: initial, gains: gains}
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func percentChange(start, end float64) float64 {
	return ((end - start) / start) * 100
}

// TotalReturn is the percent change of the account from its initial value
// after all recorded gains.
func (r *ReturnStream) TotalReturn() float64 {
	total := r.initial
	for _, g := range r.gains {
		total += g.gain
	}
	return percentChange(r.initial, total)
}

// DayReturn is the cumulative percentage return as of one gain day.
type DayReturn struct {
	Day    time.Time
	Return float64
}

// Returns is the cumulative percentage return after each gain day.
func (r *ReturnStream) Returns() []DayReturn {
	out := make([]DayReturn, 0, len(r.gains))
	last := r.initial
	for _, g := range r.gains {
		out = append(out, DayReturn{Day: g.day, Return: percentChange(r.initial, last+g.gain)})
		last += g.gain
	}
	return out
}
