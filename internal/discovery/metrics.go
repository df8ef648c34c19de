package discovery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	swipesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discovery_swipes_total",
		Help: "Swipes recorded, by action",
	}, []string{"action"})

	swipesDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discovery_swipes_duplicate_total",
		Help: "Swipes rejected as duplicates of an existing decision",
	})

	matchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discovery_matches_total",
		Help: "Mutual matches created",
	})

	matchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discovery_match_failures_total",
		Help: "Swipes abandoned after exhausting transaction retries",
	})

	reconcileConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discovery_reconcile_conflicts_total",
		Help: "Reconcile transactions retried after a serialization conflict",
	})

	feedBuildSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "discovery_feed_build_seconds",
		Help:    "Time to materialize a candidate feed",
		Buckets: prometheus.DefBuckets,
	})

	likerPages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discovery_liker_pages_total",
		Help: "Liker queue pages served",
	})
)

func feedBuildTimer() *prometheus.Timer {
	return prometheus.NewTimer(feedBuildSeconds)
}
