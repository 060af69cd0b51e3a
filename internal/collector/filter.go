package collector

import (
	"math"
	"sort"

	"github.com/moznion/go-optional"

	"KumoSentinel/internal/model"
)

// FilterStats counts what Filter kept and dropped.
type FilterStats struct {
	Total     int
	Dropped   int
	Duplicate int // rows replaced by a later row for the same day
}

// Kept returns the number of rows that became bars.
func (s FilterStats) Kept() int { return s.Total - s.Dropped - s.Duplicate }

// Filter turns raw rows into bars. Rows whose high, low or close is missing,
// non-finite or not positive are dropped. A bad open is treated as absent.
// Output is chronological with one bar per calendar day; on a repeated day the
// later row wins.
func Filter(raw []RawBar) ([]model.Bar, FilterStats) {
	stats := FilterStats{Total: len(raw)}

	rows := make([]RawBar, len(raw))
	copy(rows, raw)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Time.Before(rows[j].Time) })

	bars := make([]model.Bar, 0, len(rows))
	for _, r := range rows {
		high, okH := price(r.High)
		low, okL := price(r.Low)
		cls, okC := price(r.Close)
		if !okH || !okL || !okC {
			stats.Dropped++
			continue
		}
		open := optional.None[float64]()
		if o, ok := price(r.Open); ok {
			open = optional.Some(o)
		}
		b := model.Bar{Date: model.CalendarDay(r.Time), Open: open, High: high, Low: low, Close: cls}

		if n := len(bars); n > 0 && bars[n-1].Date.Equal(b.Date) {
			bars[n-1] = b
			stats.Duplicate++
			continue
		}
		bars = append(bars, b)
	}
	return bars, stats
}

func price(v optional.Option[float64]) (float64, bool) {
	if v.IsNone() {
		return 0, false
	}
	f := v.Unwrap()
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, false
	}
	return f, true
}
