package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "scanner"

var (
	// ScansTotal counts finished scans by outcome status.
	ScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scans_total",
		Help:      "Number of image scans by outcome status.",
	}, []string{"status"})

	// ScanDurationSeconds observes the wall clock duration of scans,
	// including retries.
	ScanDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "scan_duration_seconds",
		Help:      "Wall clock duration of image scans.",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
	})

	// CacheRequestsTotal counts dedup cache lookups by result.
	CacheRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_requests_total",
		Help:      "Number of scan cache lookups by result (hit or miss).",
	}, []string{"result"})

	// UnknownSeverityTotal counts severity values the normalizer could not
	// recognize and bucketed as MEDIUM.
	UnknownSeverityTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "unknown_severity_total",
		Help:      "Number of findings with an unrecognized severity value.",
	})

	// AlertsTotal counts scan outcomes that crossed the alert threshold.
	AlertsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_total",
		Help:      "Number of scan outcomes that triggered an alert.",
	})
)
