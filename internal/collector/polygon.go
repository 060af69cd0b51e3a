package collector

import (
	"context"
	"errors"
	"time"

	"github.com/moznion/go-optional"
	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
)

// PolygonFetcher implements Fetcher using Polygon.io daily aggregates.
type PolygonFetcher struct {
	client *polygon.Client
	now    func() time.Time
}

// NewPolygonFetcher creates a fetcher for the given API key.
func NewPolygonFetcher(apiKey string) (*PolygonFetcher, error) {
	if apiKey == "" {
		return nil, errors.New("polygon: api key is required")
	}
	return &PolygonFetcher{client: polygon.New(apiKey), now: time.Now}, nil
}

func (f *PolygonFetcher) Name() string { return "polygon" }

func (f *PolygonFetcher) FetchDailyBars(ctx context.Context, symbol string, days int) ([]RawBar, error) {
	to := f.now()
	// Trading days are roughly 5/7 of calendar days; pad for holidays.
	from := to.AddDate(0, 0, -(days*7/5 + 14))

	params := &models.ListAggsParams{
		Ticker:     symbol,
		Multiplier: 1,
		Timespan:   models.Day,
		From:       models.Millis(from),
		To:         models.Millis(to),
	}
	limit := 50000
	asc := models.Asc
	adjusted := true
	params.Limit = &limit
	params.Order = &asc
	params.Adjusted = &adjusted

	iter := f.client.ListAggs(ctx, params)
	var bars []RawBar
	for iter.Next() {
		agg := iter.Item()
		// Daily aggregates start at midnight New York time, which is the same
		// date in UTC.
		bars = append(bars, RawBar{
			Time:  time.Time(agg.Timestamp).UTC(),
			Open:  optional.Some(agg.Open),
			High:  optional.Some(agg.High),
			Low:   optional.Some(agg.Low),
			Close: optional.Some(agg.Close),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, &DataSourceError{Source: f.Name(), Err: err}
	}
	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}
