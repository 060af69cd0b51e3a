// Package notifier delivers signal alerts to external channels.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Notifier accepts a subject/body pair.
type Notifier interface {
	Send(ctx context.Context, subject, body string) error
	Name() string
}

// ErrNotification is matched by every NotificationError.
var ErrNotification = errors.New("notification failed")

// NotificationError wraps a delivery failure.
type NotificationError struct {
	Channel string
	Err     error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notify via %s: %v", e.Channel, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }

func (e *NotificationError) Is(target error) bool { return target == ErrNotification }

// Noop is used when no channel is configured. Sends succeed without doing anything.
type Noop struct{}

func (Noop) Send(context.Context, string, string) error { return nil }
func (Noop) Name() string                               { return "none" }

// IsNoop reports whether n delivers nowhere.
func IsNoop(n Notifier) bool {
	_, ok := n.(Noop)
	return ok
}

// Multi sends to every channel and reports all failures.
type Multi []Notifier

func (m Multi) Name() string { return "multi" }

func (m Multi) Send(ctx context.Context, subject, body string) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, subject, body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Retrying retries a notifier with exponential backoff starting at Backoff.
type Retrying struct {
	Notifier   Notifier
	MaxRetries int
	Backoff    time.Duration
	Logger     zerolog.Logger
}

// WithRetry wraps n so each Send is retried up to maxRetries times.
func WithRetry(n Notifier, maxRetries int, logger zerolog.Logger) *Retrying {
	return &Retrying{Notifier: n, MaxRetries: maxRetries, Backoff: time.Second, Logger: logger}
}

func (r *Retrying) Name() string { return r.Notifier.Name() }

func (r *Retrying) Send(ctx context.Context, subject, body string) error {
	var lastErr error
	for i := 0; i <= r.MaxRetries; i++ {
		err := r.Notifier.Send(ctx, subject, body)
		if err == nil {
			return nil
		}
		lastErr = err
		if i == r.MaxRetries {
			break
		}
		backoff := r.Backoff * time.Duration(1<<uint(i))
		r.Logger.Warn().Err(err).
			Str("channel", r.Notifier.Name()).
			Int("attempt", i+1).
			Dur("backoff", backoff).
			Msg("send failed, retrying")
		select {
		case <-ctx.Done():
			return &NotificationError{Channel: r.Notifier.Name(), Err: ctx.Err()}
		case <-time.After(backoff):
		}
	}
	return &NotificationError{Channel: r.Notifier.Name(), Err: fmt.Errorf("all %d attempts failed: %w", r.MaxRetries+1, lastErr)}
}
