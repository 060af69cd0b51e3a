// Package pipeline runs one evaluation: fetch bars, compute the Ichimoku
// snapshot, classify, gate the alert through the deduplicator, notify, publish
// the dashboard document, and record the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"KumoSentinel/internal/calculator"
	"KumoSentinel/internal/collector"
	"KumoSentinel/internal/dedup"
	"KumoSentinel/internal/logging"
	"KumoSentinel/internal/metrics"
	"KumoSentinel/internal/model"
	"KumoSentinel/internal/notifier"
	"KumoSentinel/internal/publisher"
	"KumoSentinel/internal/recorder"
	"KumoSentinel/internal/strategy"
)

// Status is how a run ended.
type Status string

const (
	StatusPublished           Status = "published"
	StatusInsufficientHistory Status = "insufficient_history"
	StatusFailed              Status = "failed"
)

// Source yields the bar series for a run.
type Source interface {
	Collect(ctx context.Context) (*collector.Collection, error)
}

// Publisher writes the dashboard document.
type Publisher interface {
	Publish(ctx context.Context, doc publisher.Document) error
}

// Result describes one completed run.
type Result struct {
	RunID      string
	Status     Status
	Snapshot   model.IchimokuSnapshot
	Signal     model.Signal
	Outcome    recorder.Outcome
	NotifyErr  error
	Document   *publisher.Document
	Stats      collector.FilterStats
	Shortfall  *calculator.InsufficientHistoryError
	Pruned     int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Deps are the collaborators of a Runner. Notifier, Recorder and Metrics may
// be nil.
type Deps struct {
	Source        Source
	Dedup         *dedup.Deduplicator
	Notifier      notifier.Notifier
	Publisher     Publisher
	Recorder      recorder.Recorder
	Metrics       *metrics.Metrics
	Symbol        string
	HistoryWindow int
}

// Runner executes pipeline runs. Runs are not serialized; callers that
// trigger overlapping runs accept that two runs on the same day can both
// notify.
type Runner struct {
	deps   Deps
	logger zerolog.Logger
	now    func() time.Time
}

// New creates a Runner, filling nil optional collaborators with no-ops.
func New(deps Deps, logger zerolog.Logger) *Runner {
	if deps.Notifier == nil {
		deps.Notifier = notifier.Noop{}
	}
	if deps.Recorder == nil {
		deps.Recorder = recorder.NewNoopRecorder()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	if deps.HistoryWindow <= 0 {
		deps.HistoryWindow = publisher.DefaultWindow
	}
	return &Runner{deps: deps, logger: logger, now: time.Now}
}

// Metrics returns the metrics the runner reports into.
func (r *Runner) Metrics() *metrics.Metrics { return r.deps.Metrics }

// Run performs one evaluation. Insufficient history is not an error: the
// result has StatusInsufficientHistory and nothing is published. Data source,
// persistence and publish failures abort the run before publishing.
// Notification failures are reported in the result only.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	res := &Result{RunID: logging.NewRunID(), StartedAt: r.now(), Outcome: recorder.OutcomeNone}
	log := logging.WithSymbol(logging.WithRun(r.logger, res.RunID), r.deps.Symbol)
	log.Info().Msg("run started")

	err := r.run(ctx, res, log)
	res.FinishedAt = r.now()
	if err != nil {
		res.Status = StatusFailed
		log.Error().Err(err).Msg("run failed")
	}

	r.deps.Metrics.ObserveRun(string(res.Status), res.StartedAt, err)
	r.record(ctx, res, err, log)

	if err != nil {
		return res, err
	}
	log.Info().
		Str("status", string(res.Status)).
		Str("signal", string(res.Signal)).
		Str("outcome", string(res.Outcome)).
		Dur("took", res.FinishedAt.Sub(res.StartedAt)).
		Msg("run finished")
	return res, nil
}

func (r *Runner) run(ctx context.Context, res *Result, log zerolog.Logger) error {
	coll, err := r.deps.Source.Collect(ctx)
	if err != nil {
		return err
	}
	res.Stats = coll.Stats
	r.deps.Metrics.DroppedBarsTotal.Add(float64(coll.Stats.Dropped))

	snap, err := calculator.ComputeIchimoku(coll.Series)
	var short *calculator.InsufficientHistoryError
	if errors.As(err, &short) {
		res.Status = StatusInsufficientHistory
		res.Shortfall = short
		log.Warn().
			Int("have", short.Have).
			Int("need", short.Need).
			Str("window", short.Window).
			Msg("not enough history, nothing published")
		return nil
	}
	if err != nil {
		return fmt.Errorf("compute ichimoku: %w", err)
	}
	res.Snapshot = snap

	sig := strategy.Classify(snap)
	res.Signal = sig
	r.deps.Metrics.ObserveSnapshot(snap, sig)
	log.Info().
		Str("date", snap.Date.Format(model.DayLayout)).
		Float64("price", snap.Price).
		Float64("tenkan", snap.Tenkan).
		Float64("kijun", snap.Kijun).
		Float64("senkou_a", snap.SenkouA).
		Float64("senkou_b", snap.SenkouB).
		Str("signal", string(sig)).
		Msg("signal classified")

	if sig.Actionable() {
		if err := r.alert(ctx, res, log); err != nil {
			return err
		}
	}

	pruned, err := r.deps.Dedup.Prune(ctx)
	if err != nil {
		return err
	}
	res.Pruned = pruned

	alerts, err := r.deps.Dedup.History(ctx)
	if err != nil {
		return err
	}

	doc := publisher.Build(publisher.BuildInput{
		Symbol:   r.deps.Symbol,
		Snapshot: snap,
		Signal:   sig,
		Series:   coll.Series,
		Alerts:   alerts,
		Window:   r.deps.HistoryWindow,
		Now:      r.now(),
	})
	if err := r.deps.Publisher.Publish(ctx, doc); err != nil {
		return err
	}
	res.Document = &doc
	res.Status = StatusPublished
	return nil
}

// alert consults the deduplicator and notifies on a first sighting. The key
// stays recorded even when the send fails.
func (r *Runner) alert(ctx context.Context, res *Result, log zerolog.Logger) error {
	snap, sig := res.Snapshot, res.Signal

	suppressed, err := r.deps.Dedup.ShouldSuppress(ctx, sig, snap.Date)
	if err != nil {
		return err
	}
	if suppressed {
		res.Outcome = recorder.OutcomeSuppressed
		r.deps.Metrics.NotificationsTotal.WithLabelValues(string(res.Outcome)).Inc()
		log.Info().Str("key", dedup.EncodeKey(sig, snap.Date)).Msg("alert already sent, suppressed")
		return nil
	}

	subject, body := notifier.FormatSignalAlert(r.deps.Symbol, snap, sig)
	if notifier.IsNoop(r.deps.Notifier) {
		res.Outcome = recorder.OutcomeSkipped
		log.Warn().Str("subject", subject).Msg("no notification channel configured, alert only logged")
	} else if err := r.deps.Notifier.Send(ctx, subject, body); err != nil {
		res.Outcome = recorder.OutcomeFailed
		res.NotifyErr = err
		log.Error().Err(err).Str("channel", r.deps.Notifier.Name()).Msg("notification failed")
	} else {
		res.Outcome = recorder.OutcomeNotified
		log.Info().Str("channel", r.deps.Notifier.Name()).Str("subject", subject).Msg("alert sent")
	}
	r.deps.Metrics.NotificationsTotal.WithLabelValues(string(res.Outcome)).Inc()
	return nil
}

// record stores the run. A recorder failure is logged and never fails the run.
func (r *Runner) record(ctx context.Context, res *Result, runErr error, log zerolog.Logger) {
	rec := &recorder.RunRecord{
		RunID:     res.RunID,
		Timestamp: res.StartedAt,
		Symbol:    r.deps.Symbol,
		Status:    string(res.Status),
		Price:     res.Snapshot.Price,
		Tenkan:    res.Snapshot.Tenkan,
		Kijun:     res.Snapshot.Kijun,
		SenkouA:   res.Snapshot.SenkouA,
		SenkouB:   res.Snapshot.SenkouB,
		Signal:    res.Signal,
		Outcome:   res.Outcome,
		Bars:      res.Stats.Kept(),
		Dropped:   res.Stats.Dropped,
	}
	if !res.Snapshot.Date.IsZero() {
		rec.Date = res.Snapshot.Date.Format(model.DayLayout)
	}
	switch {
	case res.NotifyErr != nil:
		rec.Error = res.NotifyErr.Error()
	case runErr != nil:
		rec.Error = runErr.Error()
	}
	if err := r.deps.Recorder.RecordRun(ctx, rec); err != nil {
		log.Warn().Err(err).Msg("failed to record run")
	}
}
