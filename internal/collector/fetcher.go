package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/moznion/go-optional"
)

// RawBar is one daily row as delivered by a source. Any price may be missing.
type RawBar struct {
	Time  time.Time
	Open  optional.Option[float64]
	High  optional.Option[float64]
	Low   optional.Option[float64]
	Close optional.Option[float64]
}

// Fetcher defines the interface for fetching daily bars, oldest first.
type Fetcher interface {
	FetchDailyBars(ctx context.Context, symbol string, days int) ([]RawBar, error)
	Name() string
}

// DataSourceError reports a failed fetch or a non-success response.
type DataSourceError struct {
	Source string
	Status int // HTTP status, 0 when the request never completed
	Err    error
}

func (e *DataSourceError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Source, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *DataSourceError) Unwrap() error { return e.Err }
