// Package metrics exposes Prometheus instrumentation for the rule index,
// DTA, and information-flow engines. Every engine entry point that takes
// a *Metrics accepts nil, in which case recording is a no-op
// -- metrics are optional instrumentation, never load-bearing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus collector the analysis engines record
// to, grounded on the promauto.With(reg).New* pattern used throughout
// the Sentinel Gate metrics package this engine borrows its ambient
// stack from.
type Metrics struct {
	IndexBuildDuration  prometheus.Histogram
	IndexNodesTotal     prometheus.Gauge
	IndexMaxBucketDepth prometheus.Gauge

	DTATransitionsTotal *prometheus.CounterVec
	DTAQueryDuration    prometheus.Histogram

	IFQueriesTotal *prometheus.CounterVec
	IFPathsFound   prometheus.Histogram
}

// New creates and registers every collector with reg.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		IndexBuildDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Namespace: "sepolicy",
			Subsystem: "ruleindex",
			Name:      "build_duration_seconds",
			Help:      "Time to build the canonical rule index from a policy view",
			Buckets:   prometheus.DefBuckets,
		}),
		IndexNodesTotal: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "sepolicy",
			Subsystem: "ruleindex",
			Name:      "nodes_total",
			Help:      "Number of nodes in the most recently built rule index",
		}),
		IndexMaxBucketDepth: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "sepolicy",
			Subsystem: "ruleindex",
			Name:      "max_bucket_depth",
			Help:      "Deepest hash bucket chain in the most recently built rule index",
		}),
		DTATransitionsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "sepolicy",
			Subsystem: "dta",
			Name:      "transitions_total",
			Help:      "Total domain transitions returned by DTA queries",
		}, []string{"direction", "valid"}),
		DTAQueryDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Namespace: "sepolicy",
			Subsystem: "dta",
			Name:      "query_duration_seconds",
			Help:      "Time to run a DTA forward/reverse enumeration",
			Buckets:   prometheus.DefBuckets,
		}),
		IFQueriesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "sepolicy",
			Subsystem: "ifa",
			Name:      "queries_total",
			Help:      "Total information-flow queries run, by kind",
		}, []string{"kind"}),
		IFPathsFound: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Namespace: "sepolicy",
			Subsystem: "ifa",
			Name:      "paths_found",
			Help:      "Number of results returned per information-flow query (flows for direct, paths for transitive/multipath)",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
}

// ObserveIndexBuild records one rule-index build. m may be nil.
func (m *Metrics) ObserveIndexBuild(elapsed time.Duration, nodes, maxBucketDepth int) {
	if m == nil {
		return
	}
	m.IndexBuildDuration.Observe(elapsed.Seconds())
	m.IndexNodesTotal.Set(float64(nodes))
	m.IndexMaxBucketDepth.Set(float64(maxBucketDepth))
}

// ObserveDTAQuery records one DTA forward/reverse enumeration. m may be
// nil.
func (m *Metrics) ObserveDTAQuery(elapsed time.Duration, direction string, validCount, invalidCount int) {
	if m == nil {
		return
	}
	m.DTAQueryDuration.Observe(elapsed.Seconds())
	m.DTATransitionsTotal.WithLabelValues(direction, "true").Add(float64(validCount))
	m.DTATransitionsTotal.WithLabelValues(direction, "false").Add(float64(invalidCount))
}

// ObserveIFQuery records one information-flow query. m may be nil.
func (m *Metrics) ObserveIFQuery(kind string, pathsFound int) {
	if m == nil {
		return
	}
	m.IFQueriesTotal.WithLabelValues(kind).Inc()
	if pathsFound > 0 {
		m.IFPathsFound.Observe(float64(pathsFound))
	}
}
