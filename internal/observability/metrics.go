package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webforum_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webforum_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// ContentEvents counts accepted content mutations by kind
	// (post_created, comment_added, like_added, like_removed, tag_attached).
	ContentEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webforum_content_events_total",
		Help: "Total content mutations by kind",
	}, []string{"event"})

	// AuthAttempts counts registrations and logins by outcome.
	AuthAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webforum_auth_attempts_total",
		Help: "Total registration and login attempts by outcome",
	}, []string{"action", "outcome"})

	// CacheLookups counts post listing cache lookups by result (hit, miss, error).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webforum_cache_lookups_total",
		Help: "Total post cache lookups by result",
	}, []string{"cache", "result"})
)

// RecordContentEvent increments the content event counter.
func RecordContentEvent(event string) {
	ContentEvents.WithLabelValues(event).Inc()
}

// RecordAuthAttempt increments the auth attempt counter.
func RecordAuthAttempt(action string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	AuthAttempts.WithLabelValues(action, outcome).Inc()
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
