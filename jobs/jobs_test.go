package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/odyssey-erp/finreports/internal/jobs"
	"github.com/odyssey-erp/finreports/internal/normalize"
	"github.com/odyssey-erp/finreports/internal/reports"
	_ "github.com/odyssey-erp/finreports/testing"
)

type stubBuilder struct {
	mu       sync.Mutex
	requests []reports.Request
	fail     normalize.ReportType
}

func (s *stubBuilder) Report(ctx context.Context, req reports.Request) (normalize.NormalizedReport, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	if req.Type == s.fail {
		return normalize.NormalizedReport{}, reports.ErrUpstream
	}
	return normalize.NormalizedReport{ReportType: req.Type, HasData: true}, nil
}

func newWarmup(builder ReportBuilder, types ...normalize.ReportType) *ReportWarmupJob {
	job := NewReportWarmupJob(builder, types, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	job.clock = func() time.Time { return time.Date(2025, 6, 14, 2, 0, 0, 0, time.UTC) }
	return job
}

func TestReportWarmupBuildsCurrentMonth(t *testing.T) {
	builder := &stubBuilder{}
	job := newWarmup(builder, normalize.BalanceSheet, normalize.CashFlow)

	warmed, err := job.Run(context.Background(), job.Types)
	require.NoError(t, err)
	assert.Equal(t, 2, warmed)
	assert.Equal(t, []reports.Request{
		{Type: normalize.BalanceSheet, AsOfDate: "2025-06-14"},
		{Type: normalize.CashFlow, StartDate: "2025-06-01", EndDate: "2025-06-14"},
	}, builder.requests)
}

func TestReportWarmupContinuesAfterFailure(t *testing.T) {
	builder := &stubBuilder{fail: normalize.ProfitLoss}
	job := newWarmup(builder, normalize.ProfitLoss, normalize.TrialBalance)

	warmed, err := job.Run(context.Background(), job.Types)
	assert.ErrorIs(t, err, reports.ErrUpstream)
	assert.Equal(t, 1, warmed)
	assert.Len(t, builder.requests, 2)
}

func TestReportWarmupHandlePayloadTypes(t *testing.T) {
	builder := &stubBuilder{}
	job := newWarmup(builder, normalize.BalanceSheet)

	task, err := NewReportsWarmupTask("sales-summary", "VENDOR_ANALYSIS")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Len(t, builder.requests, 2)
	assert.Equal(t, normalize.SalesSummary, builder.requests[0].Type)
	assert.Equal(t, normalize.VendorAnalysis, builder.requests[1].Type)
}

func TestReportWarmupRejectsBadPayload(t *testing.T) {
	job := newWarmup(&stubBuilder{}, normalize.BalanceSheet)

	err := job.Handle(context.Background(), asynq.NewTask(TaskReportsWarmup, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	task, err := NewReportsWarmupTask("aged-receivables")
	require.NoError(t, err)
	err = job.Handle(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

type stubPruner struct {
	retention time.Duration
	removed   int64
	err       error
}

func (s *stubPruner) PruneSnapshots(ctx context.Context, retention time.Duration) (int64, error) {
	s.retention = retention
	return s.removed, s.err
}

func TestSnapshotPruneUsesRetention(t *testing.T) {
	pruner := &stubPruner{removed: 4}
	job := NewSnapshotPruneJob(pruner, 720*time.Hour, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewSnapshotsPruneTask(0)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 720*time.Hour, pruner.retention)

	task, err = NewSnapshotsPruneTask(48)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 48*time.Hour, pruner.retention)
}

func TestSnapshotPrunePropagatesError(t *testing.T) {
	boom := errors.New("pg down")
	job := NewSnapshotPruneJob(&stubPruner{err: boom}, time.Hour, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewSnapshotsPruneTask(0)
	require.NoError(t, err)
	assert.ErrorIs(t, job.Handle(context.Background(), task), boom)
}

func TestTaskConstructors(t *testing.T) {
	task, err := NewReportsWarmupTask()
	require.NoError(t, err)
	assert.Equal(t, TaskReportsWarmup, task.Type())
	assert.JSONEq(t, `{}`, string(task.Payload()))

	task, err = NewSnapshotsPruneTask(24)
	require.NoError(t, err)
	var payload SnapshotsPrunePayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, 24, payload.RetentionHours)
}

func TestJobsHealthWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/jobs", NewHandler(nil, nil).MountRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"queue":"default","pending":0,"active":0,"retry":0,"archived":0,"paused":false,"processedToday":0,"failedToday":0}`, rec.Body.String())
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func TestJobsHealthReportsQueueState(t *testing.T) {
	r := chi.NewRouter()
	inspector := stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3, Active: 1, Retry: 2, Processed: 40, Failed: 2}}
	r.Route("/jobs", NewHandler(inspector, nil).MountRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var health QueueHealth
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, 3, health.Pending)
	assert.Equal(t, 2, health.Retry)
	assert.Equal(t, 40, health.Processed)
}

func TestJobsHealthInspectorFailure(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/jobs", NewHandler(stubInspector{err: errors.New("redis down")}, nil).MountRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.NotContains(t, rec.Body.String(), "redis down")
}

func TestNewWorkerSkipsIncompleteCronEntries(t *testing.T) {
	task, err := NewSnapshotsPruneTask(0)
	require.NoError(t, err)

	w, err := NewWorker(WorkerConfig{Cron: []CronRegistration{{Spec: "", Task: task}, {Spec: "@daily"}}})
	require.NoError(t, err)
	assert.Nil(t, w.scheduler)
	assert.Equal(t, defaultConcurrency, serverConfig(WorkerConfig{}).Concurrency)

	_, err = NewWorker(WorkerConfig{Cron: []CronRegistration{{Spec: "not a cron", Task: task}}})
	assert.ErrorContains(t, err, TaskSnapshotsPrune)
}
