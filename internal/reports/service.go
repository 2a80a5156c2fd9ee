package reports

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/finreports/internal/normalize"
)

// Service coordinates fetching, normalizing, caching and snapshotting reports.
type Service struct {
	source     Source
	normalizer *normalize.Normalizer
	cache      *Cache
	snapshots  SnapshotStore
	metrics    *Metrics
	logger     *slog.Logger
	group      singleflight.Group
	now        func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithCache enables the Redis cache.
func WithCache(c *Cache) Option { return func(s *Service) { s.cache = c } }

// WithSnapshots records unrecognized payloads.
func WithSnapshots(store SnapshotStore) Option { return func(s *Service) { s.snapshots = store } }

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *Metrics) Option { return func(s *Service) { s.metrics = m } }

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides time.Now, used for snapshot timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService wires the service. source may be nil when only Normalize is used.
func NewService(source Source, normalizer *normalize.Normalizer, opts ...Option) *Service {
	if normalizer == nil {
		normalizer = normalize.New()
	}
	s := &Service{
		source:     source,
		normalizer: normalizer,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Report fetches the requested report from upstream and normalizes it. Results
// are cached per request and version.
func (s *Service) Report(ctx context.Context, req Request) (normalize.NormalizedReport, error) {
	if err := req.Validate(); err != nil {
		return normalize.NormalizedReport{}, err
	}
	if s.source == nil {
		return normalize.NormalizedReport{}, fmt.Errorf("%w: no source configured", ErrUpstream)
	}
	key, err := s.cache.BuildKey(ctx, req.cacheParts()...)
	if err != nil {
		s.logger.Warn("report cache key failed", slog.String("report", string(req.Type)), slog.Any("error", err))
		key = strings.Join(req.cacheParts(), ":")
	}

	report, err, shared := s.build(ctx, key, func(ctx context.Context) (normalize.NormalizedReport, error) {
		return s.cached(ctx, req.Type, key, func(ctx context.Context) (normalize.NormalizedReport, error) {
			raw, err := s.source.Fetch(ctx, req)
			if err != nil {
				return normalize.NormalizedReport{}, err
			}
			return s.normalizeRaw(ctx, req.Type, raw)
		})
	})
	if err != nil {
		return normalize.NormalizedReport{}, err
	}
	if shared {
		s.logger.Debug("report build shared", slog.String("report", string(req.Type)), slog.String("key", key))
	}
	return report, nil
}

// Normalize shapes a raw payload supplied by the caller. Results are cached by
// report type and payload hash.
func (s *Service) Normalize(ctx context.Context, reportType normalize.ReportType, raw []byte) (normalize.NormalizedReport, error) {
	key, err := s.cache.BuildKey(ctx, keyRaw(reportType, raw)...)
	if err != nil {
		s.logger.Warn("report cache key failed", slog.String("report", string(reportType)), slog.Any("error", err))
		return s.normalizeRaw(ctx, reportType, raw)
	}
	report, err, _ := s.build(ctx, key, func(ctx context.Context) (normalize.NormalizedReport, error) {
		return s.cached(ctx, reportType, key, func(ctx context.Context) (normalize.NormalizedReport, error) {
			return s.normalizeRaw(ctx, reportType, raw)
		})
	})
	return report, err
}

// BumpCache invalidates every cached report.
func (s *Service) BumpCache(ctx context.Context) (int64, error) {
	return s.cache.Bump(ctx)
}

// Snapshots lists recently recorded unrecognized payloads.
func (s *Service) Snapshots(ctx context.Context, limit int) ([]Snapshot, error) {
	if s.snapshots == nil {
		return []Snapshot{}, nil
	}
	return s.snapshots.ListRecent(ctx, limit)
}

// PruneSnapshots removes snapshots older than retention.
func (s *Service) PruneSnapshots(ctx context.Context, retention time.Duration) (int64, error) {
	if s.snapshots == nil || retention <= 0 {
		return 0, nil
	}
	return s.snapshots.Prune(ctx, s.now().Add(-retention))
}

func (s *Service) cached(ctx context.Context, t normalize.ReportType, key string, build func(context.Context) (normalize.NormalizedReport, error)) (normalize.NormalizedReport, error) {
	start := s.now()
	report, hit, err := s.cache.FetchReport(ctx, key, build)
	if err != nil {
		return report, err
	}
	s.metrics.observeCache(t, hit)
	if !hit {
		s.metrics.observeBuild(t, s.now().Sub(start))
	}
	return report, nil
}

// normalizeRaw decodes and shapes one payload. Unrecognized shapes are logged
// and snapshotted; neither failure is returned to the caller.
func (s *Service) normalizeRaw(ctx context.Context, t normalize.ReportType, raw []byte) (normalize.NormalizedReport, error) {
	payload, err := normalize.DecodePayload(raw)
	if err != nil {
		return normalize.NormalizedReport{}, err
	}
	report := s.normalizer.Normalize(t, payload)
	s.metrics.observeOutcome(report)

	if report.Error {
		s.logger.Warn("report payload not recognized",
			slog.String("report", string(t)),
			slog.String("message", report.Message),
			slog.Int("bytes", len(raw)))
		if s.snapshots != nil {
			snap := Snapshot{
				ReportType: t,
				Shape:      report.Shape,
				Message:    report.Message,
				Payload:    string(raw),
				CreatedAt:  s.now().UTC(),
			}
			if err := s.snapshots.Record(ctx, snap); err != nil {
				s.logger.Error("record report snapshot", slog.String("report", string(t)), slog.Any("error", err))
			}
		}
		return report, nil
	}
	if discrepancies := normalize.Reconcile(report); len(discrepancies) > 0 {
		s.logger.Info("report totals disagree with rows",
			slog.String("report", string(t)),
			slog.Int("sections", len(discrepancies)),
			slog.String("first", discrepancies[0].Section))
	}
	return report, nil
}
