// Package recorder keeps a history of pipeline runs for later inspection.
package recorder

import (
	"context"
	"time"

	"KumoSentinel/internal/model"
)

// Outcome describes what a run did about notification.
type Outcome string

const (
	OutcomeNotified   Outcome = "notified"
	OutcomeSuppressed Outcome = "suppressed"
	OutcomeFailed     Outcome = "failed"  // notification attempted and failed
	OutcomeSkipped    Outcome = "skipped" // new alert but no channel configured
	OutcomeNone       Outcome = "none"    // NEUTRAL, or no indicator values
)

// RunRecord holds everything one run observed and decided.
type RunRecord struct {
	RunID       string
	Timestamp   time.Time
	Symbol      string
	Status      string
	Date        string
	Price       float64
	Tenkan      float64
	Kijun       float64
	SenkouA     float64
	SenkouB     float64
	Signal      model.Signal
	Outcome     Outcome
	Error       string
	Bars        int
	Dropped     int
}

// Recorder persists run records.
type Recorder interface {
	RecordRun(ctx context.Context, rec *RunRecord) error
	RecentRuns(ctx context.Context, limit int) ([]RunRecord, error)
	Close() error
}
