// Package metrics holds the Prometheus collectors exported on /metrics.
//
// Collectors are registered on the default registry through promauto, so
// importing the package is enough to expose them.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "starshelf"

// Sync pass results.
const (
	SyncChanged     = "changed"
	SyncUnchanged   = "unchanged"
	SyncNotModified = "not_modified"
	SyncFailed      = "failed"
)

// Repo resolution sources.
const (
	ResolveCache    = "cache"
	ResolveStore    = "store"
	ResolveUpstream = "upstream"
	ResolveMissing  = "missing"
)

var (
	SyncPasses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "passes_total",
		Help:      "Synchronization passes by result.",
	}, []string{"result"})

	SyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "duration_seconds",
		Help:      "Wall time of synchronization passes.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	})

	SyncRepoChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "repo_changes_total",
		Help:      "Memberships added or removed by synchronization.",
	}, []string{"direction"})

	RepoResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "repos",
		Name:      "resolutions_total",
		Help:      "owner/name lookups by the source that answered them.",
	}, []string{"source"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route pattern and status.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method and route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// ObserveSync records one finished pass.
func ObserveSync(result string, elapsed time.Duration, added, removed int) {
	SyncPasses.WithLabelValues(result).Inc()
	SyncDuration.Observe(elapsed.Seconds())
	if added > 0 {
		SyncRepoChanges.WithLabelValues("added").Add(float64(added))
	}
	if removed > 0 {
		SyncRepoChanges.WithLabelValues("removed").Add(float64(removed))
	}
}
