package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatube_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "yatube_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// PageCacheRequests counts cached page lookups by outcome (hit, miss, unreachable).
	PageCacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatube_page_cache_requests_total",
		Help: "Total number of page cache lookups by outcome",
	}, []string{"outcome"})

	// PageCacheClears counts explicit page cache invalidations.
	PageCacheClears = promauto.NewCounter(prometheus.CounterOpts{
		Name: "yatube_page_cache_clears_total",
		Help: "Total number of explicit page cache clears",
	})

	// ContentCreated counts posts, comments and follows created.
	ContentCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatube_content_created_total",
		Help: "Total number of content records created by kind",
	}, []string{"kind"})
)

const queryStartKey = "yatube:query_start"

// RegisterGormMetrics installs callbacks that feed DatabaseQueryLatency.
func RegisterGormMetrics(db *gorm.DB) error {
	before := func(tx *gorm.DB) {
		tx.InstanceSet(queryStartKey, time.Now())
	}
	after := func(operation string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			v, ok := tx.InstanceGet(queryStartKey)
			if !ok {
				return
			}
			start, ok := v.(time.Time)
			if !ok {
				return
			}
			table := "unknown"
			if tx.Statement != nil && tx.Statement.Table != "" {
				table = tx.Statement.Table
			}
			DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
		}
	}

	cb := db.Callback()
	if err := cb.Create().Before("gorm:create").Register("yatube:metrics_before_create", before); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("yatube:metrics_after_create", after("create")); err != nil {
		return err
	}
	if err := cb.Query().Before("gorm:query").Register("yatube:metrics_before_query", before); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("yatube:metrics_after_query", after("query")); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("yatube:metrics_before_update", before); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("yatube:metrics_after_update", after("update")); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("yatube:metrics_before_delete", before); err != nil {
		return err
	}
	return cb.Delete().After("gorm:delete").Register("yatube:metrics_after_delete", after("delete"))
}
