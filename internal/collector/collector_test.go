package collector

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"KumoSentinel/internal/model/modeltest"
)

func some(v float64) optional.Option[float64] { return optional.Some(v) }

func none() optional.Option[float64] { return optional.None[float64]() }

func day(d int) time.Time { return time.Date(2024, 1, d, 14, 30, 0, 0, time.UTC) }

func TestFilter_DropsMalformedRows(t *testing.T) {
	raw := []RawBar{
		{Time: day(1), Open: some(10), High: some(11), Low: some(9), Close: some(10)},
		{Time: day(2), Open: some(10), High: none(), Low: some(9), Close: some(10)},
		{Time: day(3), Open: some(10), High: some(11), Low: some(math.NaN()), Close: some(10)},
		{Time: day(4), Open: some(10), High: some(11), Low: some(9), Close: some(0)},
		{Time: day(5), Open: none(), High: some(12), Low: some(8), Close: some(11)},
		{Time: day(6), Open: some(math.Inf(1)), High: some(12), Low: some(8), Close: some(11)},
	}
	bars, stats := Filter(raw)

	assert.Equal(t, FilterStats{Total: 6, Dropped: 3}, stats)
	assert.Equal(t, 3, stats.Kept())
	require.Len(t, bars, 3)
	assert.Equal(t, "2024-01-01", bars[0].Day())
	assert.True(t, bars[1].Open.IsNone())
	assert.True(t, bars[2].Open.IsNone())
}

func TestFilter_SortsAndCollapsesSameDay(t *testing.T) {
	raw := []RawBar{
		{Time: day(3), High: some(3), Low: some(3), Close: some(3)},
		{Time: day(1), High: some(1), Low: some(1), Close: some(1)},
		{Time: day(3).Add(time.Hour), High: some(4), Low: some(4), Close: some(4)},
	}
	bars, stats := Filter(raw)

	require.Len(t, bars, 2)
	assert.Equal(t, 1.0, bars[0].Close)
	assert.Equal(t, 4.0, bars[1].Close)
	assert.Equal(t, 1, stats.Duplicate)
}

func TestCollector_Collect(t *testing.T) {
	fetcher := NewMockFetcher(modeltest.Flat(300, 50))
	fetcher.Bars[10].Close = none()

	col := NewCollector(fetcher, "TEST", zerolog.Nop())
	got, err := col.Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, DefaultDays, got.Stats.Total)
	assert.Equal(t, 0, got.Stats.Dropped, "row 10 falls outside the requested window")
	assert.Equal(t, DefaultDays, got.Series.Len())

	fetcher.Bars[299].High = none()
	got, err = col.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stats.Dropped)
	assert.Equal(t, DefaultDays-1, got.Series.Len())
}

func TestCollector_FetchErrorIsDataSourceError(t *testing.T) {
	fetcher := &MockFetcher{Err: &DataSourceError{Source: "mock", Status: 503, Err: errors.New("unavailable")}}
	_, err := NewCollector(fetcher, "TEST", zerolog.Nop()).Collect(context.Background())

	var dse *DataSourceError
	require.ErrorAs(t, err, &dse)
	assert.Equal(t, 503, dse.Status)
}

const yahooBody = `{"chart":{"result":[{"meta":{"gmtoffset":-18000},
 "timestamp":[1704205800,1704292200,1704378600],
 "indicators":{"quote":[{
   "open":[100.0,null,102.0],
   "high":[101.5,102.0,null],
   "low":[99.0,100.0,101.0],
   "close":[101.0,101.5,102.5]}]}}],"error":null}}`

func TestYahooFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/^GSPC", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		w.Write([]byte(yahooBody))
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	raw, err := f.FetchDailyBars(context.Background(), "SPX500", 250)
	require.NoError(t, err)
	require.Len(t, raw, 3)

	bars, stats := Filter(raw)
	assert.Equal(t, 1, stats.Dropped)
	require.Len(t, bars, 2)
	// 1704205800 is 2024-01-02 09:30 in New York
	assert.Equal(t, "2024-01-02", bars[0].Day())
	assert.True(t, bars[1].Open.IsNone())
}

func TestYahooFetcher_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	_, err := f.FetchDailyBars(context.Background(), "AAPL", 100)

	var dse *DataSourceError
	require.ErrorAs(t, err, &dse)
	assert.Equal(t, http.StatusTooManyRequests, dse.Status)
}

func TestRESTFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		w.Write([]byte(`[
			{"date":"2024-01-05T00:00:00.000Z","open":1,"high":2,"low":0.5,"close":1.5},
			{"timestamp":1704758400,"high":3,"low":1,"close":2},
			{"date":"2024-01-09","open":1,"high":"n/a","low":1,"close":2}
		]`))
	}))
	defer srv.Close()

	_, err := NewRESTFetcher(srv.URL, "k", "").FetchDailyBars(context.Background(), "AAPL", 10)
	// a string where a number belongs fails the whole decode
	var dse *DataSourceError
	require.ErrorAs(t, err, &dse)
}

func TestRESTFetcher_NullFieldsDropped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"date":"2024-01-05T00:00:00.000Z","open":1,"high":2,"low":0.5,"close":1.5},
			{"timestamp":1704758400,"high":3,"low":1,"close":2},
			{"date":"2024-01-10","open":1,"high":null,"low":1,"close":2},
			{"open":1,"high":2,"low":1,"close":2}
		]`))
	}))
	defer srv.Close()

	raw, err := NewRESTFetcher(srv.URL, "", "").FetchDailyBars(context.Background(), "AAPL", 10)
	require.NoError(t, err)

	bars, stats := Filter(raw)
	assert.Equal(t, 2, stats.Dropped)
	require.Len(t, bars, 2)
	assert.Equal(t, "2024-01-05", bars[0].Day())
	assert.Equal(t, "2024-01-09", bars[1].Day())
}

func TestNewPolygonFetcher_RequiresKey(t *testing.T) {
	_, err := NewPolygonFetcher("")
	assert.Error(t, err)
}

func TestRangeFor(t *testing.T) {
	for bars, want := range map[int]string{20: "1mo", 90: "3mo", 120: "6mo", 250: "1y", 300: "2y", 900: "5y"} {
		assert.Equal(t, want, rangeFor(bars), "bars=%d", bars)
	}
}
