// Package metrics exposes run metrics for Prometheus, either scraped over HTTP
// in daemon mode or written to a node_exporter textfile after a one-shot run.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"KumoSentinel/internal/model"
)

// Metrics holds all Prometheus metrics for the sentinel.
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal          *prometheus.CounterVec // labels: status
	SignalsTotal       *prometheus.CounterVec // labels: signal
	NotificationsTotal *prometheus.CounterVec // labels: outcome
	DroppedBarsTotal   prometheus.Counter
	RunDuration        prometheus.Histogram

	IchimokuLine  *prometheus.GaugeVec // labels: line
	LastPrice     prometheus.Gauge
	LastSignal    prometheus.Gauge // 1=BUY, 0=NEUTRAL, -1=SELL
	LastRunUnix   prometheus.Gauge
	LastRunFailed prometheus.Gauge
}

// New registers all metrics on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kumo_runs_total",
			Help: "Pipeline runs by final status",
		}, []string{"status"}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kumo_signals_total",
			Help: "Signals classified, by type",
		}, []string{"signal"}),
		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kumo_notifications_total",
			Help: "Alert handling outcomes (notified, suppressed, failed)",
		}, []string{"outcome"}),
		DroppedBarsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kumo_dropped_bars_total",
			Help: "Raw bars dropped by the collector filter",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kumo_run_duration_seconds",
			Help:    "Wall time of one pipeline run",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		IchimokuLine: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "kumo_ichimoku_line",
			Help: "Latest Ichimoku line values",
		}, []string{"line"}),
		LastPrice: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kumo_last_price",
			Help: "Close of the latest bar",
		}),
		LastSignal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kumo_last_signal",
			Help: "Latest signal (1=BUY, 0=NEUTRAL, -1=SELL)",
		}),
		LastRunUnix: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kumo_last_run_timestamp_seconds",
			Help: "Unix time of the latest completed run",
		}),
		LastRunFailed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kumo_last_run_failed",
			Help: "1 when the latest run ended with an error",
		}),
	}

	m.registry.MustRegister(
		m.RunsTotal,
		m.SignalsTotal,
		m.NotificationsTotal,
		m.DroppedBarsTotal,
		m.RunDuration,
		m.IchimokuLine,
		m.LastPrice,
		m.LastSignal,
		m.LastRunUnix,
		m.LastRunFailed,
	)
	return m
}

// ObserveSnapshot records the latest indicator values and signal.
func (m *Metrics) ObserveSnapshot(snap model.IchimokuSnapshot, sig model.Signal) {
	m.IchimokuLine.WithLabelValues("tenkan").Set(snap.Tenkan)
	m.IchimokuLine.WithLabelValues("kijun").Set(snap.Kijun)
	m.IchimokuLine.WithLabelValues("senkou_a").Set(snap.SenkouA)
	m.IchimokuLine.WithLabelValues("senkou_b").Set(snap.SenkouB)
	m.LastPrice.Set(snap.Price)
	m.SignalsTotal.WithLabelValues(string(sig)).Inc()

	switch sig {
	case model.SignalBuy:
		m.LastSignal.Set(1)
	case model.SignalSell:
		m.LastSignal.Set(-1)
	default:
		m.LastSignal.Set(0)
	}
}

// ObserveRun records the end of a run.
func (m *Metrics) ObserveRun(status string, started time.Time, err error) {
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(time.Since(started).Seconds())
	m.LastRunUnix.Set(float64(time.Now().Unix()))
	if err != nil {
		m.LastRunFailed.Set(1)
	} else {
		m.LastRunFailed.Set(0)
	}
}

// Gatherer exposes the underlying registry.
func (m *Metrics) Gatherer() prometheus.Gatherer { return m.registry }

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes the metrics for the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
