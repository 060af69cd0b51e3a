// Package scheduler drives pipeline runs from a cron schedule in daemon mode and
// answers chat commands.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"KumoSentinel/internal/dedup"
	"KumoSentinel/internal/model"
	"KumoSentinel/internal/notifier"
	"KumoSentinel/internal/pipeline"
	"KumoSentinel/internal/publisher"
)

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context) (*pipeline.Result, error)
}

// Scheduler manages the cron trigger for pipeline runs.
type Scheduler struct {
	Cron    *cron.Cron
	Runner  Runner
	Dedup   *dedup.Deduplicator
	DocPath string
	Symbol  string
	Logger  zerolog.Logger
	Ctx     context.Context
}

// NewScheduler creates a Scheduler. Cron entries never overlap themselves: a
// tick that arrives while the previous run is still going is skipped.
func NewScheduler(ctx context.Context, runner Runner, dd *dedup.Deduplicator, docPath, symbol string, logger zerolog.Logger) *Scheduler {
	cl := cronLogger{logger}
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		Runner:  runner,
		Dedup:   dd,
		DocPath: docPath,
		Symbol:  symbol,
		Logger:  logger,
		Ctx:     ctx,
	}
}

// Register schedules the evaluation run. The expression has a leading seconds field
// and may start with CRON_TZ=.
func (s *Scheduler) Register(expr string) error {
	if _, err := s.Cron.AddFunc(expr, s.runTask); err != nil {
		return fmt.Errorf("register run task %q: %w", expr, err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	for _, e := range s.Cron.Entries() {
		s.Logger.Info().Time("next", e.Next).Msg("scheduler started")
	}
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Logger.Info().Msg("scheduler stopped")
}

// RunNow executes a run immediately (RUN_ON_START and the /run command).
func (s *Scheduler) RunNow() (*pipeline.Result, error) {
	return s.Runner.Run(s.Ctx)
}

func (s *Scheduler) runTask() {
	if _, err := s.RunNow(); err != nil {
		s.Logger.Error().Err(err).Msg("scheduled run failed")
	}
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	cmd := strings.ToLower(strings.TrimSpace(command))
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i] // "/signal@kumo_bot"
	}

	switch cmd {
	case "/signal":
		doc, err := publisher.Load(s.DocPath)
		if err != nil {
			s.Logger.Warn().Err(err).Msg("load snapshot for /signal")
			return "No snapshot published yet."
		}
		return formatDocument(doc)
	case "/history":
		records, err := s.Dedup.History(ctx)
		if err != nil {
			s.Logger.Error().Err(err).Msg("load history for /history")
			return "Could not read alert history."
		}
		return notifier.FormatHistory(records, 20)
	case "/run":
		res, err := s.RunNow()
		if err != nil {
			return fmt.Sprintf("Run failed: %v", err)
		}
		return formatResult(res)
	default:
		return "Commands:\n/signal - latest Ichimoku snapshot\n/history - alerts sent so far\n/run - evaluate now"
	}
}

func formatDocument(doc publisher.Document) string {
	date, err := time.Parse(model.DayLayout, doc.Date)
	if err != nil {
		date = time.Time{}
	}
	snap := model.IchimokuSnapshot{
		Tenkan:  doc.Ichimoku.Tenkan,
		Kijun:   doc.Ichimoku.Kijun,
		SenkouA: doc.Ichimoku.SenkouA,
		SenkouB: doc.Ichimoku.SenkouB,
		Price:   doc.Price,
		Date:    date,
	}
	return notifier.FormatSnapshot(doc.Ticker, snap, doc.Signal)
}

func formatResult(res *pipeline.Result) string {
	switch res.Status {
	case pipeline.StatusInsufficientHistory:
		if res.Shortfall != nil {
			return fmt.Sprintf("Not enough history: have %d bars, need %d.", res.Shortfall.Have, res.Shortfall.Need)
		}
		return "Not enough history."
	case pipeline.StatusPublished:
		return fmt.Sprintf("Run %s: %s on %s (%s).",
			shortID(res.RunID), res.Signal, res.Snapshot.Date.Format(model.DayLayout), res.Outcome)
	default:
		return fmt.Sprintf("Run %s ended with status %s.", res.RunID, res.Status)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// cronLogger routes cron's own logging through zerolog.
type cronLogger struct{ l zerolog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
