package recorder

import "context"

// NoopRecorder is used when no recorder database is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(_ context.Context, _ *RunRecord) error { return nil }
func (n *NoopRecorder) RecentRuns(_ context.Context, _ int) ([]RunRecord, error) {
	return nil, nil
}
func (n *NoopRecorder) Close() error { return nil }
