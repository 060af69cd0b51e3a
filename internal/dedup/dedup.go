// Package dedup gates notifications so each (signal, day) pair alerts at most once.
//
// Keys live in a state.Store as "{SIGNAL}-{YYYY-MM-DD}". A key moves from unseen
// to seen on its first observation and never back. The check-then-record
// sequence is not atomic across processes; two overlapping runs on the same day
// can both notify.
package dedup

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"KumoSentinel/internal/model"
	"KumoSentinel/internal/state"
)

// ErrNotActionable is returned when a NEUTRAL signal reaches the deduplicator.
var ErrNotActionable = errors.New("signal is not actionable")

// Deduplicator answers "already alerted?" and records first sightings.
type Deduplicator struct {
	store     state.Store
	retention int
	now       func() time.Time
	logger    zerolog.Logger
}

// Option configures a Deduplicator.
type Option func(*Deduplicator)

// WithRetention drops keys older than days from History and, when the store
// supports it, from the store itself on Prune. Zero keeps everything.
func WithRetention(days int) Option {
	return func(d *Deduplicator) { d.retention = days }
}

// WithClock overrides time.Now for retention cutoffs.
func WithClock(now func() time.Time) Option {
	return func(d *Deduplicator) { d.now = now }
}

// WithLogger sets the logger used for skipped keys and pruning.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Deduplicator) { d.logger = l }
}

// New creates a Deduplicator over store.
func New(store state.Store, opts ...Option) *Deduplicator {
	d := &Deduplicator{store: store, now: time.Now, logger: zerolog.Nop()}
	for _, o := range opts {
		o(d)
	}
	return d
}

// ShouldSuppress reports whether (sig, date) was already alerted. When it was
// not, the key is recorded before returning false.
func (d *Deduplicator) ShouldSuppress(ctx context.Context, sig model.Signal, date time.Time) (bool, error) {
	if !sig.Actionable() {
		return false, fmt.Errorf("%w: %s", ErrNotActionable, sig)
	}
	key := EncodeKey(sig, date)

	seen, err := d.store.Has(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check alert %s: %w", key, err)
	}
	if seen {
		return true, nil
	}
	if err := d.store.Put(ctx, key); err != nil {
		return false, fmt.Errorf("record alert %s: %w", key, err)
	}
	return false, nil
}

// History decodes every recorded key, oldest first. Keys that do not decode are
// skipped with a warning.
func (d *Deduplicator) History(ctx context.Context) ([]model.AlertRecord, error) {
	keys, err := d.store.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	cutoff := d.cutoff()

	records := make([]model.AlertRecord, 0, len(keys))
	for _, k := range keys {
		rec, err := DecodeKey(k)
		if err != nil {
			d.logger.Warn().Str("key", k).Err(err).Msg("skipping undecodable alert key")
			continue
		}
		if cutoff != "" && rec.Date < cutoff {
			continue
		}
		records = append(records, rec)
	}
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Date != records[j].Date {
			return records[i].Date < records[j].Date
		}
		return records[i].Type < records[j].Type
	})
	return records, nil
}

// Prune deletes keys older than the retention window. It is a no-op without a
// retention policy or when the store cannot delete.
func (d *Deduplicator) Prune(ctx context.Context) (int, error) {
	cutoff := d.cutoff()
	if cutoff == "" {
		return 0, nil
	}
	del, ok := d.store.(state.Deleter)
	if !ok {
		return 0, nil
	}
	keys, err := d.store.Keys(ctx)
	if err != nil {
		return 0, fmt.Errorf("list alerts: %w", err)
	}
	var stale []string
	for _, k := range keys {
		if rec, err := DecodeKey(k); err == nil && rec.Date < cutoff {
			stale = append(stale, k)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}
	if err := del.Delete(ctx, stale...); err != nil {
		return 0, fmt.Errorf("prune alerts: %w", err)
	}
	d.logger.Info().Int("pruned", len(stale)).Str("cutoff", cutoff).Msg("pruned alert history")
	return len(stale), nil
}

// cutoff returns the oldest day kept, or "" when retention is off.
// Day strings compare correctly as text.
func (d *Deduplicator) cutoff() string {
	if d.retention <= 0 {
		return ""
	}
	return d.now().AddDate(0, 0, -d.retention).Format(model.DayLayout)
}

// EncodeKey builds the store key for a signal on the calendar day of date.
func EncodeKey(sig model.Signal, date time.Time) string {
	return string(sig) + "-" + date.Format(model.DayLayout)
}

// EncodeKeyString builds the key from an ISO-8601 date string, dropping any
// time-of-day portion ("2024-01-05T00:00:00.000Z" keys as "2024-01-05").
func EncodeKeyString(sig model.Signal, date string) string {
	return string(sig) + "-" + dayPart(date)
}

// DecodeKey splits a key on its first hyphen. The day keeps its own hyphens.
func DecodeKey(key string) (model.AlertRecord, error) {
	i := strings.IndexByte(key, '-')
	if i <= 0 || i == len(key)-1 {
		return model.AlertRecord{}, fmt.Errorf("malformed alert key %q", key)
	}
	sig, day := model.Signal(key[:i]), key[i+1:]
	if !sig.Valid() {
		return model.AlertRecord{}, fmt.Errorf("alert key %q: unknown signal %q", key, sig)
	}
	if _, err := time.Parse(model.DayLayout, day); err != nil {
		return model.AlertRecord{}, fmt.Errorf("alert key %q: bad day: %w", key, err)
	}
	return model.AlertRecord{Type: sig, Date: day}, nil
}

func dayPart(date string) string {
	if i := strings.IndexByte(date, 'T'); i >= 0 {
		return date[:i]
	}
	return date
}
