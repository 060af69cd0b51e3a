package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/moznion/go-optional"

	"KumoSentinel/internal/model"
)

// RESTFetcher implements Fetcher against a JSON bars API:
// GET {base}/api/v1/bars/daily?symbol=...&limit=... returning an array of bars.
type RESTFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewRESTFetcher creates a new fetcher with optional proxy support.
func NewRESTFetcher(baseURL, apiKey, proxyURL string) *RESTFetcher {
	return &RESTFetcher{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  newHTTPClient(proxyURL),
	}
}

func (f *RESTFetcher) Name() string { return "rest" }

// restBar is the expected JSON shape. Either timestamp (unix seconds) or date
// (YYYY-MM-DD, optionally with a time part) identifies the day.
type restBar struct {
	Timestamp int64    `json:"timestamp"`
	Date      string   `json:"date"`
	Open      *float64 `json:"open"`
	High      *float64 `json:"high"`
	Low       *float64 `json:"low"`
	Close     *float64 `json:"close"`
}

func (f *RESTFetcher) FetchDailyBars(ctx context.Context, symbol string, days int) ([]RawBar, error) {
	endpoint := fmt.Sprintf("%s/api/v1/bars/daily?symbol=%s&limit=%d", f.BaseURL, url.QueryEscape(symbol), days)
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, &DataSourceError{Source: f.Name(), Err: err}
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, &DataSourceError{Source: f.Name(), Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &DataSourceError{Source: f.Name(), Status: resp.StatusCode, Err: fmt.Errorf("body: %s", truncate(body, 200))}
	}

	var rows []restBar
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, &DataSourceError{Source: f.Name(), Err: fmt.Errorf("decode bars: %w", err)}
	}

	bars := make([]RawBar, 0, len(rows))
	for _, r := range rows {
		t, ok := r.day()
		if !ok {
			// no usable date; Filter would have nothing to key it on
			bars = append(bars, RawBar{})
			continue
		}
		bars = append(bars, RawBar{
			Time:  t,
			Open:  fromPtr(r.Open),
			High:  fromPtr(r.High),
			Low:   fromPtr(r.Low),
			Close: fromPtr(r.Close),
		})
	}
	return bars, nil
}

func (r restBar) day() (time.Time, bool) {
	if r.Date != "" {
		d := r.Date
		if len(d) > len(model.DayLayout) {
			d = d[:len(model.DayLayout)]
		}
		t, err := time.Parse(model.DayLayout, d)
		return t, err == nil
	}
	if r.Timestamp > 0 {
		return time.Unix(r.Timestamp, 0).UTC(), true
	}
	return time.Time{}, false
}

func fromPtr(p *float64) optional.Option[float64] {
	if p == nil {
		return optional.None[float64]()
	}
	return optional.Some(*p)
}
