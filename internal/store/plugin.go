package store

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

const slowQueryThreshold = time.Second

var (
	dbQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weather_db_query_duration_seconds",
			Help:    "Database query execution time in seconds.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"operation", "table", "status"},
	)

	dbErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_db_errors_total",
			Help: "Database errors by operation, table and Go error type.",
		},
		[]string{"operation", "table", "error_type"},
	)

	dbSlowQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_db_slow_queries_total",
			Help: "Queries slower than one second.",
		},
		[]string{"operation", "table"},
	)

	dbPoolOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "weather_db_pool_open_connections",
		Help: "Open database connections.",
	})
	dbPoolInUse = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "weather_db_pool_in_use_connections",
		Help: "Database connections currently in use.",
	})
	dbPoolIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "weather_db_pool_idle_connections",
		Help: "Idle database connections.",
	})
)

const startTimeKey = "metrics:start_time"

// MetricsPlugin times every gorm callback chain.
type MetricsPlugin struct{}

func (p *MetricsPlugin) Name() string {
	return "metricsPlugin"
}

func (p *MetricsPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		op     string
		before func(string, func(*gorm.DB)) error
		after  func(string, func(*gorm.DB)) error
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
	for _, h := range hooks {
		op := h.op
		if err := h.before("metrics:before_"+op, beforeCallback); err != nil {
			return err
		}
		if err := h.after("metrics:after_"+op, func(db *gorm.DB) { afterCallback(db, op) }); err != nil {
			return err
		}
	}
	return nil
}

func beforeCallback(db *gorm.DB) {
	db.InstanceSet(startTimeKey, time.Now())
}

func afterCallback(db *gorm.DB, op string) {
	v, ok := db.InstanceGet(startTimeKey)
	if !ok {
		return
	}
	started, ok := v.(time.Time)
	if !ok {
		return
	}
	elapsed := time.Since(started)

	table := db.Statement.Table
	if table == "" {
		table = "unknown"
	}

	status := "success"
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		status = "error"
		errType := strings.TrimPrefix(fmt.Sprintf("%T", db.Error), "*")
		dbErrorsTotal.WithLabelValues(op, table, errType).Inc()
	}
	dbQueryDuration.WithLabelValues(op, table, status).Observe(elapsed.Seconds())
	if elapsed > slowQueryThreshold {
		dbSlowQueriesTotal.WithLabelValues(op, table).Inc()
	}
}

// CollectPoolMetrics publishes sql.DB pool statistics.
func (s *Store) CollectPoolMetrics() {
	sqlDB, err := s.db.DB()
	if err != nil {
		return
	}
	stats := sqlDB.Stats()
	dbPoolOpen.Set(float64(stats.OpenConnections))
	dbPoolInUse.Set(float64(stats.InUse))
	dbPoolIdle.Set(float64(stats.Idle))
}
