package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/moznion/go-optional"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooFetcher reads daily bars from the public Yahoo Finance chart endpoint.
type YahooFetcher struct {
	BaseURL string
	Client  *http.Client
	// Aliases translates local symbol names to Yahoo tickers.
	Aliases map[string]string
}

func NewYahooFetcher(proxyURL string) *YahooFetcher {
	return &YahooFetcher{
		BaseURL: yahooBaseURL,
		Client:  newHTTPClient(proxyURL),
		Aliases: map[string]string{"SPX500": "^GSPC", "SPX": "^GSPC", "SP500": "^GSPC"},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

// chartRanges lists the smallest Yahoo range covering a given bar count.
var chartRanges = []struct {
	maxBars int
	rng     string
}{
	{30, "1mo"},
	{90, "3mo"},
	{180, "6mo"},
	{250, "1y"},
	{500, "2y"},
}

func rangeFor(bars int) string {
	for _, r := range chartRanges {
		if bars <= r.maxBars {
			return r.rng
		}
	}
	return "5y"
}

type chartQuote struct {
	Open  []*float64 `json:"open"`
	High  []*float64 `json:"high"`
	Low   []*float64 `json:"low"`
	Close []*float64 `json:"close"`
}

type chartResult struct {
	Meta struct {
		GMTOffset int `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []chartQuote `json:"quote"`
	} `json:"indicators"`
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// at reads column i of a quote series; nulls and short series become None.
func at(col []*float64, i int) optional.Option[float64] {
	if i < len(col) && col[i] != nil {
		return optional.Some(*col[i])
	}
	return optional.None[float64]()
}

func (r chartResult) bars() []RawBar {
	q := r.Indicators.Quote[0]
	// Timestamps mark session opens; the exchange zone keeps them on the right day.
	loc := time.FixedZone("exchange", r.Meta.GMTOffset)
	out := make([]RawBar, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		out[i] = RawBar{
			Time:  time.Unix(ts, 0).In(loc),
			Open:  at(q.Open, i),
			High:  at(q.High, i),
			Low:   at(q.Low, i),
			Close: at(q.Close, i),
		}
	}
	return out
}

func (f *YahooFetcher) FetchDailyBars(ctx context.Context, symbol string, days int) ([]RawBar, error) {
	ticker := symbol
	if alias, ok := f.Aliases[symbol]; ok {
		ticker = alias
	}
	q := url.Values{"interval": {"1d"}, "range": {rangeFor(days)}}
	endpoint := f.BaseURL + "/v8/finance/chart/" + url.PathEscape(ticker) + "?" + q.Encode()

	chart, err := f.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if e := chart.Chart.Error; e != nil {
		return nil, &DataSourceError{Source: f.Name(), Err: fmt.Errorf("%s: %s", e.Code, e.Description)}
	}
	results := chart.Chart.Result
	if len(results) == 0 || len(results[0].Indicators.Quote) == 0 {
		return nil, &DataSourceError{Source: f.Name(), Err: errors.New("empty chart")}
	}

	bars := results[0].bars()
	if days > 0 && len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}

func (f *YahooFetcher) get(ctx context.Context, endpoint string) (*chartResponse, error) {
	fail := func(status int, err error) (*chartResponse, error) {
		return nil, &DataSourceError{Source: f.Name(), Status: status, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fail(0, err)
	}
	// Yahoo rejects requests without a browser-like agent.
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return fail(0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(0, fmt.Errorf("read body: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return fail(resp.StatusCode, fmt.Errorf("body: %s", truncate(body, 200)))
	}
	var chart chartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return fail(0, fmt.Errorf("decode: %w", err))
	}
	return &chart, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
