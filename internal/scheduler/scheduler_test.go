package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"KumoSentinel/internal/calculator"
	"KumoSentinel/internal/dedup"
	"KumoSentinel/internal/model"
	"KumoSentinel/internal/pipeline"
	"KumoSentinel/internal/publisher"
	"KumoSentinel/internal/recorder"
	"KumoSentinel/internal/state"
)

type countingRunner struct {
	calls atomic.Int32
	res   *pipeline.Result
	err   error
}

func (c *countingRunner) Run(context.Context) (*pipeline.Result, error) {
	c.calls.Add(1)
	return c.res, c.err
}

func newTestScheduler(t *testing.T, runner Runner, store state.Store) *Scheduler {
	t.Helper()
	docPath := filepath.Join(t.TempDir(), "data.json")
	return NewScheduler(context.Background(), runner, dedup.New(store), docPath, "SPY", zerolog.Nop())
}

func TestRegister(t *testing.T) {
	s := newTestScheduler(t, &countingRunner{}, state.NewMemoryStore())
	assert.NoError(t, s.Register("0 30 21 * * 1-5"))
	assert.NoError(t, s.Register("CRON_TZ=UTC 0 15 21 * * 1-5"))
	assert.Error(t, s.Register("not a cron expression"))
	assert.Len(t, s.Cron.Entries(), 2)
}

func TestScheduledRunFires(t *testing.T) {
	runner := &countingRunner{res: &pipeline.Result{Status: pipeline.StatusPublished}}
	s := newTestScheduler(t, runner, state.NewMemoryStore())
	require.NoError(t, s.Register("* * * * * *"))

	s.Start()
	assert.Eventually(t, func() bool { return runner.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	s.Stop()
}

func TestHandleCommand_Signal(t *testing.T) {
	s := newTestScheduler(t, &countingRunner{}, state.NewMemoryStore())
	ctx := context.Background()

	assert.Equal(t, "No snapshot published yet.", s.HandleCommand(ctx, "/signal"))

	doc := publisher.Document{
		Ticker: "SPY", Price: 160, Date: "2024-03-20", Signal: model.SignalBuy,
		Ichimoku: publisher.Ichimoku{Tenkan: 152, Kijun: 135, SenkouA: 100, SenkouB: 100},
	}
	require.NoError(t, publisher.New([]string{s.DocPath}, zerolog.Nop()).Publish(ctx, doc))

	reply := s.HandleCommand(ctx, "/signal@kumo_bot")
	assert.Contains(t, reply, "SPY | 2024-03-20")
	assert.Contains(t, reply, "Signal: BUY")
	assert.Contains(t, reply, "above cloud")
}

func TestHandleCommand_History(t *testing.T) {
	store := state.NewMemoryStore("SELL-2024-02-01", "BUY-2024-03-20")
	s := newTestScheduler(t, &countingRunner{}, store)

	reply := s.HandleCommand(context.Background(), "/history")
	assert.Contains(t, reply, "2024-02-01  SELL")
	assert.Contains(t, reply, "2024-03-20  BUY")
}

func TestHandleCommand_Run(t *testing.T) {
	runner := &countingRunner{res: &pipeline.Result{
		RunID:    "0123456789abcdef",
		Status:   pipeline.StatusPublished,
		Signal:   model.SignalNeutral,
		Outcome:  recorder.OutcomeNone,
		Snapshot: model.IchimokuSnapshot{Date: time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)},
	}}
	s := newTestScheduler(t, runner, state.NewMemoryStore())

	assert.Equal(t, "Run 01234567: NEUTRAL on 2024-03-20 (none).", s.HandleCommand(context.Background(), "/run"))
	assert.EqualValues(t, 1, runner.calls.Load())

	runner.res = &pipeline.Result{
		Status:    pipeline.StatusInsufficientHistory,
		Shortfall: &calculator.InsufficientHistoryError{Have: 40, Need: calculator.MinBars},
	}
	assert.Equal(t, "Not enough history: have 40 bars, need 78.", s.HandleCommand(context.Background(), "/run"))

	runner.err = errors.New("yahoo down")
	assert.Equal(t, "Run failed: yahoo down", s.HandleCommand(context.Background(), "/run"))
}

func TestHandleCommand_Help(t *testing.T) {
	s := newTestScheduler(t, &countingRunner{}, state.NewMemoryStore())
	assert.Contains(t, s.HandleCommand(context.Background(), "hello"), "/signal")
}
