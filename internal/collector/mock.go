package collector

import (
	"context"

	"github.com/moznion/go-optional"

	"KumoSentinel/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Bars  []RawBar
	Err   error
	Calls int
}

// NewMockFetcher serves the given clean bars as raw rows.
func NewMockFetcher(bars []model.Bar) *MockFetcher {
	return &MockFetcher{Bars: RawFromBars(bars)}
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(_ context.Context, _ string, days int) ([]RawBar, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Bars) > days {
		return m.Bars[len(m.Bars)-days:], nil
	}
	return m.Bars, nil
}

// RawFromBars converts bars back into raw rows.
func RawFromBars(bars []model.Bar) []RawBar {
	raw := make([]RawBar, len(bars))
	for i, b := range bars {
		raw[i] = RawBar{
			Time:  b.Date,
			Open:  b.Open,
			High:  optional.Some(b.High),
			Low:   optional.Some(b.Low),
			Close: optional.Some(b.Close),
		}
	}
	return raw
}
