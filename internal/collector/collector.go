package collector

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"KumoSentinel/internal/model"
)

// DefaultDays is how many daily bars a collection asks for.
const DefaultDays = 250

// Collection is the outcome of one fetch: the clean series plus filter counts.
type Collection struct {
	Series *model.BarSeries
	Stats  FilterStats
}

// Collector fetches raw bars and turns them into a BarSeries.
type Collector struct {
	Fetcher Fetcher
	Symbol  string
	Days    int
	Logger  zerolog.Logger
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, symbol string, logger zerolog.Logger) *Collector {
	return &Collector{Fetcher: fetcher, Symbol: symbol, Days: DefaultDays, Logger: logger}
}

// Collect fetches daily bars and drops malformed rows.
func (c *Collector) Collect(ctx context.Context) (*Collection, error) {
	raw, err := c.Fetcher.FetchDailyBars(ctx, c.Symbol, c.Days)
	if err != nil {
		return nil, fmt.Errorf("fetch daily bars: %w", err)
	}

	bars, stats := Filter(raw)
	if stats.Dropped > 0 {
		c.Logger.Warn().
			Str("source", c.Fetcher.Name()).
			Int("dropped", stats.Dropped).
			Int("total", stats.Total).
			Msg("dropped malformed rows")
	}

	series, err := model.NewBarSeries(c.Symbol, bars)
	if err != nil {
		return nil, fmt.Errorf("build series: %w", err)
	}
	c.Logger.Debug().
		Str("source", c.Fetcher.Name()).
		Int("bars", series.Len()).
		Int("duplicates", stats.Duplicate).
		Msg("collected daily bars")
	return &Collection{Series: series, Stats: stats}, nil
}
