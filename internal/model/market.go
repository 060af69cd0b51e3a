package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/moznion/go-optional"
)

// DayLayout is the calendar-day format used for keys, logs and the published document.
const DayLayout = "2006-01-02"

// ErrUnordered is returned when bars are not strictly ascending by calendar day.
var ErrUnordered = errors.New("bars not in strictly ascending date order")

// Bar represents one trading day. Open may be absent in degraded sources.
type Bar struct {
	Date  time.Time
	Open  optional.Option[float64]
	High  float64
	Low   float64
	Close float64
}

// Day returns the bar's calendar day as YYYY-MM-DD.
func (b Bar) Day() string { return b.Date.Format(DayLayout) }

// CalendarDay strips the time-of-day from t, keeping the day as seen in t's location.
func CalendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// BarSeries is an ordered, chronological run of daily bars for one instrument.
// It is never mutated after construction; every accessor returns a copy.
type BarSeries struct {
	Symbol string
	bars   []Bar
}

// NewBarSeries copies bars, normalizes their dates to calendar days and checks ordering.
func NewBarSeries(symbol string, bars []Bar) (*BarSeries, error) {
	out := make([]Bar, len(bars))
	for i, b := range bars {
		b.Date = CalendarDay(b.Date)
		if i > 0 && !b.Date.After(out[i-1].Date) {
			return nil, fmt.Errorf("%w: %s after %s", ErrUnordered, b.Day(), out[i-1].Day())
		}
		out[i] = b
	}
	return &BarSeries{Symbol: symbol, bars: out}, nil
}

// Len returns the number of bars.
func (s *BarSeries) Len() int { return len(s.bars) }

// Bars returns a copy of all bars.
func (s *BarSeries) Bars() []Bar { return s.Window(len(s.bars), len(s.bars)) }

// Latest returns the most recent bar.
func (s *BarSeries) Latest() (Bar, bool) {
	if len(s.bars) == 0 {
		return Bar{}, false
	}
	return s.bars[len(s.bars)-1], true
}

// Window returns up to n bars ending just before index end. A window that would
// start before the first bar is returned short rather than padded.
func (s *BarSeries) Window(end, n int) []Bar {
	if end > len(s.bars) {
		end = len(s.bars)
	}
	if end < 0 || n <= 0 {
		return []Bar{}
	}
	start := end - n
	if start < 0 {
		start = 0
	}
	out := make([]Bar, end-start)
	copy(out, s.bars[start:end])
	return out
}

// Last returns up to the n most recent bars.
func (s *BarSeries) Last(n int) []Bar { return s.Window(len(s.bars), n) }
