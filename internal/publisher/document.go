// Package publisher assembles and writes the dashboard snapshot document.
package publisher

import (
	"time"

	"KumoSentinel/internal/model"
)

// DefaultWindow is how many trailing bars go into the document's history.
const DefaultWindow = 60

// Document is the JSON consumed by the dashboard. Field names are part of the
// dashboard contract.
type Document struct {
	Ticker        string              `json:"ticker"`
	Price         float64             `json:"price"`
	Date          string              `json:"date"`
	Signal        model.Signal        `json:"signal"`
	Ichimoku      Ichimoku            `json:"ichimoku"`
	SignalHistory []model.AlertRecord `json:"signalHistory"`
	History       []HistoryBar        `json:"history"`
	GeneratedAt   string              `json:"generatedAt"`
}

// Ichimoku holds the four indicator lines.
type Ichimoku struct {
	Tenkan  float64 `json:"tenkan"`
	Kijun   float64 `json:"kijun"`
	SenkouA float64 `json:"senkouA"`
	SenkouB float64 `json:"senkouB"`
}

// HistoryBar is one trailing bar. Price repeats Close; Open is null when the
// source did not provide it.
type HistoryBar struct {
	Date  string   `json:"date"`
	Open  *float64 `json:"open"`
	High  float64  `json:"high"`
	Low   float64  `json:"low"`
	Close float64  `json:"close"`
	Price float64  `json:"price"`
}

// BuildInput is everything one run contributes to the document.
type BuildInput struct {
	Symbol   string
	Snapshot model.IchimokuSnapshot
	Signal   model.Signal
	Series   *model.BarSeries
	Alerts   []model.AlertRecord
	Window   int
	Now      time.Time
}

// Build assembles the document. An empty signal publishes as NEUTRAL.
func Build(in BuildInput) Document {
	sig := in.Signal
	if sig == "" {
		sig = model.SignalNeutral
	}
	window := in.Window
	if window <= 0 {
		window = DefaultWindow
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	var bars []model.Bar
	if in.Series != nil {
		bars = in.Series.Last(window)
	}
	history := make([]HistoryBar, 0, len(bars))
	for _, b := range bars {
		hb := HistoryBar{
			Date:  b.Day(),
			High:  b.High,
			Low:   b.Low,
			Close: b.Close,
			Price: b.Close,
		}
		if b.Open.IsSome() {
			o := b.Open.Unwrap()
			hb.Open = &o
		}
		history = append(history, hb)
	}

	alerts := make([]model.AlertRecord, len(in.Alerts))
	copy(alerts, in.Alerts)

	return Document{
		Ticker: in.Symbol,
		Price:  in.Snapshot.Price,
		Date:   in.Snapshot.Date.Format(model.DayLayout),
		Signal: sig,
		Ichimoku: Ichimoku{
			Tenkan:  in.Snapshot.Tenkan,
			Kijun:   in.Snapshot.Kijun,
			SenkouA: in.Snapshot.SenkouA,
			SenkouB: in.Snapshot.SenkouB,
		},
		SignalHistory: alerts,
		History:       history,
		GeneratedAt:   now.UTC().Format(time.RFC3339),
	}
}
