package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/finreports/internal/jobs"
)

// SnapshotPruner deletes snapshots older than the retention window.
type SnapshotPruner interface {
	PruneSnapshots(ctx context.Context, retention time.Duration) (int64, error)
}

// SnapshotPruneJob enforces snapshot retention.
type SnapshotPruneJob struct {
	Pruner    SnapshotPruner
	Retention time.Duration
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewSnapshotPruneJob wires dependencies for the prune handler.
func NewSnapshotPruneJob(pruner SnapshotPruner, retention time.Duration, logger *slog.Logger, metrics *jobmetrics.Metrics) *SnapshotPruneJob {
	return &SnapshotPruneJob{Pruner: pruner, Retention: retention, Logger: logger, Metrics: metrics}
}

// Handle processes reports:snapshots_prune tasks.
func (j *SnapshotPruneJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pruner == nil {
		return errors.New("snapshots prune: handler not configured")
	}
	var payload SnapshotsPrunePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	retention := j.Retention
	if payload.RetentionHours > 0 {
		retention = time.Duration(payload.RetentionHours) * time.Hour
	}

	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskSnapshotsPrune)
	removed, err := j.Pruner.PruneSnapshots(ctx, retention)
	if err != nil {
		j.logger().Error("prune snapshots", slog.Any("error", err))
		return tracker.End(err)
	}
	metrics.AddPruned(removed)
	j.logger().Info("pruned snapshots", slog.Int64("removed", removed), slog.Duration("retention", retention))
	return tracker.End(nil)
}

func (j *SnapshotPruneJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskSnapshotsPrune))
	}
	return slog.Default().With(slog.String("job", TaskSnapshotsPrune))
}
