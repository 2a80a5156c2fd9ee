package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/finreports/internal/jobs"
	"github.com/odyssey-erp/finreports/internal/normalize"
	"github.com/odyssey-erp/finreports/internal/reports"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ReportBuilder produces a normalized report for a request.
type ReportBuilder interface {
	Report(ctx context.Context, req reports.Request) (normalize.NormalizedReport, error)
}

// ReportWarmupJob pre-populates the report cache for the current month.
type ReportWarmupJob struct {
	Reports ReportBuilder
	Types   []normalize.ReportType
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	Timeout time.Duration
	clock   func() time.Time
}

// NewReportWarmupJob wires dependencies for the warmup handler.
func NewReportWarmupJob(builder ReportBuilder, types []normalize.ReportType, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReportWarmupJob {
	return &ReportWarmupJob{
		Reports: builder,
		Types:   types,
		Logger:  logger,
		Metrics: metrics,
		Timeout: 20 * time.Second,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes reports:warmup tasks.
func (j *ReportWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reports == nil {
		return errors.New("reports warmup: handler not configured")
	}
	var payload ReportsWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	types, err := j.resolveTypes(payload.Types)
	if err != nil {
		j.logger().Warn("reports warmup payload", slog.Any("error", err))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskReportsWarmup)
	_, err = j.Run(ctx, types)
	return tracker.End(err)
}

// Run rebuilds each report type and returns how many succeeded. It keeps going
// after a failure and returns the first error.
func (j *ReportWarmupJob) Run(ctx context.Context, types []normalize.ReportType) (int, error) {
	logger := j.logger()
	now := j.now()
	logger.Info("starting reports warmup", slog.Int("types", len(types)))

	var firstErr error
	warmed := 0
	for _, t := range types {
		report, err := j.warm(ctx, reports.CurrentPeriod(t, now))
		if err != nil {
			logger.Error("warm report", slog.String("report", string(t)), slog.Any("error", err))
			j.metrics().AddWarmed(string(t), "error")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		j.metrics().AddWarmed(string(t), reports.Outcome(report))
		warmed++
	}

	logger.Info("completed reports warmup", slog.Int("warmed", warmed), slog.Duration("duration", j.now().Sub(now)))
	return warmed, firstErr
}

func (j *ReportWarmupJob) warm(ctx context.Context, req reports.Request) (normalize.NormalizedReport, error) {
	timeout := j.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return j.Reports.Report(reqCtx, req)
}

func (j *ReportWarmupJob) resolveTypes(raw []string) ([]normalize.ReportType, error) {
	if len(raw) == 0 {
		return j.Types, nil
	}
	out := make([]normalize.ReportType, 0, len(raw))
	for _, r := range raw {
		t, err := normalize.ParseReportType(r)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (j *ReportWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReportsWarmup))
	}
	return slog.Default().With(slog.String("job", TaskReportsWarmup))
}

func (j *ReportWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *ReportWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
