package publisher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"KumoSentinel/internal/model"
	"KumoSentinel/internal/model/modeltest"
)

func sampleInput(t *testing.T, bars int) BuildInput {
	t.Helper()
	series := modeltest.Series(t, modeltest.Flat(bars, 100))
	latest, _ := series.Latest()
	return BuildInput{
		Symbol: "SPY",
		Snapshot: model.IchimokuSnapshot{
			Tenkan: 101, Kijun: 102, SenkouA: 103, SenkouB: 104,
			Price: latest.Close, Date: latest.Date,
		},
		Signal: model.SignalBuy,
		Series: series,
		Alerts: []model.AlertRecord{{Type: model.SignalBuy, Date: "2024-03-20"}},
		Now:    time.Date(2024, 3, 21, 12, 0, 0, 0, time.UTC),
	}
}

func TestBuildWireFormat(t *testing.T) {
	in := sampleInput(t, 80)
	doc := Build(in)

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	for _, key := range []string{"ticker", "price", "date", "signal", "ichimoku", "signalHistory", "history", "generatedAt"} {
		assert.Contains(t, raw, key)
	}
	assert.Equal(t, "SPY", raw["ticker"])
	assert.Equal(t, "BUY", raw["signal"])
	assert.Equal(t, "2024-03-20", raw["date"])
	assert.Equal(t, "2024-03-21T12:00:00Z", raw["generatedAt"])

	ichi := raw["ichimoku"].(map[string]any)
	assert.Equal(t, 101.0, ichi["tenkan"])
	assert.Equal(t, 102.0, ichi["kijun"])
	assert.Equal(t, 103.0, ichi["senkouA"])
	assert.Equal(t, 104.0, ichi["senkouB"])

	hist := raw["signalHistory"].([]any)
	require.Len(t, hist, 1)
	assert.Equal(t, map[string]any{"type": "BUY", "date": "2024-03-20"}, hist[0])
}

func TestBuildHistoryWindow(t *testing.T) {
	in := sampleInput(t, 80)
	doc := Build(in)
	require.Len(t, doc.History, DefaultWindow)
	assert.Equal(t, "2024-01-21", doc.History[0].Date)
	assert.Equal(t, "2024-03-20", doc.History[DefaultWindow-1].Date)

	in.Window = 5
	doc = Build(in)
	require.Len(t, doc.History, 5)
	for _, b := range doc.History {
		assert.Equal(t, b.Close, b.Price)
	}
}

func TestBuildShortSeriesAndDefaults(t *testing.T) {
	in := sampleInput(t, 10)
	in.Signal = ""
	in.Alerts = nil
	doc := Build(in)

	assert.Len(t, doc.History, 10)
	assert.Equal(t, model.SignalNeutral, doc.Signal)

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"signalHistory":[]`)
}

func TestBuildMissingOpenIsNull(t *testing.T) {
	bars := modeltest.Flat(3, 50)
	bars[1].Open = optional.None[float64]()
	in := sampleInput(t, 3)
	in.Series = modeltest.Series(t, bars)

	doc := Build(in)
	require.NotNil(t, doc.History[0].Open)
	assert.Equal(t, 50.0, *doc.History[0].Open)
	assert.Nil(t, doc.History[1].Open)

	data, err := json.Marshal(doc.History[1])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"open":null`)
}

func TestPublishWritesEveryPath(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		filepath.Join(dir, "public", "data.json"),
		filepath.Join(dir, "archive", "nested", "data.json"),
	}
	p := New(paths, zerolog.Nop())
	doc := Build(sampleInput(t, 80))

	require.NoError(t, p.Publish(context.Background(), doc))

	for _, path := range paths {
		got, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, doc, got)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "public"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestPublishOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	p := New([]string{path}, zerolog.Nop())

	in := sampleInput(t, 80)
	require.NoError(t, p.Publish(context.Background(), Build(in)))
	in.Signal = model.SignalSell
	require.NoError(t, p.Publish(context.Background(), Build(in)))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, model.SignalSell, got.Signal)
}

func TestPublishFailureKeepsEveryPreviousSnapshot(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.json")
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	in := sampleInput(t, 80)
	require.NoError(t, New([]string{first}, zerolog.Nop()).Publish(context.Background(), Build(in)))

	in.Signal = model.SignalSell
	p := New([]string{first, filepath.Join(blocker, "b.json")}, zerolog.Nop())
	require.Error(t, p.Publish(context.Background(), Build(in)))

	got, err := Load(first)
	require.NoError(t, err)
	assert.Equal(t, model.SignalBuy, got.Signal)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "staged temp files must be removed")
}

func TestPublishCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := New([]string{filepath.Join(t.TempDir(), "data.json")}, zerolog.Nop())
	assert.ErrorIs(t, p.Publish(ctx, Document{}), context.Canceled)
}

func TestRouter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("kumo_runs_total 1\n"))
	})
	srv := httptest.NewServer(NewRouter(path, metrics))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/snapshot.json")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	doc := Build(sampleInput(t, 80))
	require.NoError(t, New([]string{path}, zerolog.Nop()).Publish(context.Background(), doc))

	resp, err = http.Get(srv.URL + "/snapshot.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var got Document
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, doc, got)

	health, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)

	m, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	m.Body.Close()
	assert.Equal(t, http.StatusOK, m.StatusCode)
}
