// Package modeltest builds synthetic bar series for tests.
package modeltest

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"

	"KumoSentinel/internal/model"
)

// Start is the date of the first synthetic bar.
var Start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Flat returns n consecutive daily bars with open=high=low=close=price.
func Flat(n int, price float64) []model.Bar {
	bars := make([]model.Bar, n)
	for i := range bars {
		bars[i] = model.Bar{
			Date:  Start.AddDate(0, 0, i),
			Open:  optional.Some(price),
			High:  price,
			Low:   price,
			Close: price,
		}
	}
	return bars
}

// Trend returns n bars that stay flat around base until the last 26 bars, which
// then jump to base+jump and move by step per bar. A positive jump and step yields
// a BUY setup, negative values a SELL setup. Every bar spans close±1.
func Trend(n int, base, jump, step float64) []model.Bar {
	bars := make([]model.Bar, n)
	moveFrom := n - 26
	for i := range bars {
		c := base
		if i >= moveFrom {
			c = base + jump + step*float64(i-moveFrom)
		}
		bars[i] = model.Bar{
			Date:  Start.AddDate(0, 0, i),
			Open:  optional.Some(c),
			High:  c + 1,
			Low:   c - 1,
			Close: c,
		}
	}
	return bars
}

// Series wraps bars in a BarSeries, failing the test on construction errors.
func Series(t testing.TB, bars []model.Bar) *model.BarSeries {
	t.Helper()
	s, err := model.NewBarSeries("TEST", bars)
	if err != nil {
		t.Fatalf("build series: %v", err)
	}
	return s
}
