package reports

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/odyssey-erp/finreports/internal/normalize"
)

// Metrics observes normalization outcomes and the report cache.
type Metrics struct {
	normalized *prometheus.CounterVec
	cacheHits  *prometheus.CounterVec
	cacheMiss  *prometheus.CounterVec
	build      *prometheus.HistogramVec
}

// NewMetrics registers the collectors. Collectors that already exist on the
// registerer are reused, so constructing twice against one registry is safe.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		normalized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finreports_normalized_total",
			Help: "Normalized reports partitioned by report type and outcome.",
		}, []string{"report", "outcome"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finreports_cache_hits_total",
			Help: "Number of cache hits for normalized reports.",
		}, []string{"report"}),
		cacheMiss: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finreports_cache_miss_total",
			Help: "Number of cache misses for normalized reports.",
		}, []string{"report"}),
		build: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "finreports_build_duration_seconds",
			Help:    "Duration required to fetch and normalize a report.",
			Buckets: prometheus.DefBuckets,
		}, []string{"report"}),
	}
	for _, target := range []**prometheus.CounterVec{&m.normalized, &m.cacheHits, &m.cacheMiss} {
		if err := reg.Register(*target); err != nil {
			existing, err := alreadyRegistered[*prometheus.CounterVec](err)
			if err != nil {
				return nil, err
			}
			*target = existing
		}
	}
	if err := reg.Register(m.build); err != nil {
		existing, err := alreadyRegistered[*prometheus.HistogramVec](err)
		if err != nil {
			return nil, err
		}
		m.build = existing
	}
	return m, nil
}

func alreadyRegistered[T prometheus.Collector](err error) (T, error) {
	var zero T
	var already prometheus.AlreadyRegisteredError
	if !errors.As(err, &already) {
		return zero, err
	}
	existing, ok := already.ExistingCollector.(T)
	if !ok {
		return zero, fmt.Errorf("reports metrics: unexpected collector type %T", already.ExistingCollector)
	}
	return existing, nil
}

// Outcome classifies a normalized report for metrics and logs.
func Outcome(r normalize.NormalizedReport) string {
	switch {
	case r.Error:
		return "error"
	case !r.HasData:
		return "empty"
	}
	return "ok"
}

func (m *Metrics) observeOutcome(r normalize.NormalizedReport) {
	if m == nil {
		return
	}
	m.normalized.WithLabelValues(string(r.ReportType), Outcome(r)).Inc()
}

func (m *Metrics) observeCache(t normalize.ReportType, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.WithLabelValues(string(t)).Inc()
		return
	}
	m.cacheMiss.WithLabelValues(string(t)).Inc()
}

func (m *Metrics) observeBuild(t normalize.ReportType, d time.Duration) {
	if m == nil {
		return
	}
	m.build.WithLabelValues(string(t)).Observe(d.Seconds())
}
