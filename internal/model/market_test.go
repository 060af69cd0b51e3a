package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"KumoSentinel/internal/model"
	"KumoSentinel/internal/model/modeltest"
)

func TestNewBarSeries_RejectsUnordered(t *testing.T) {
	bars := modeltest.Flat(3, 10)
	bars[2].Date = bars[1].Date

	_, err := model.NewBarSeries("X", bars)
	require.ErrorIs(t, err, model.ErrUnordered)
}

func TestNewBarSeries_NormalizesToCalendarDay(t *testing.T) {
	bars := modeltest.Flat(2, 10)
	bars[1].Date = bars[1].Date.Add(14*time.Hour + 30*time.Minute)

	s := modeltest.Series(t, bars)
	latest, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, "2024-01-02", latest.Day())
	assert.Equal(t, 0, latest.Date.Hour())
}

func TestWindow_ShortAtStart(t *testing.T) {
	s := modeltest.Series(t, modeltest.Flat(10, 1))

	assert.Len(t, s.Window(4, 9), 4)
	assert.Len(t, s.Window(10, 9), 9)
	assert.Len(t, s.Window(20, 3), 3)
	assert.Empty(t, s.Window(-1, 3))
	assert.Len(t, s.Last(100), 10)
}

func TestWindow_ReturnsCopy(t *testing.T) {
	s := modeltest.Series(t, modeltest.Flat(5, 1))

	w := s.Last(2)
	w[0].Close = 999

	again := s.Last(2)
	assert.Equal(t, 1.0, again[0].Close)
}

func TestSignal_Actionable(t *testing.T) {
	assert.True(t, model.SignalBuy.Actionable())
	assert.True(t, model.SignalSell.Actionable())
	assert.False(t, model.SignalNeutral.Actionable())
	assert.False(t, model.Signal("HOLD").Valid())
}
