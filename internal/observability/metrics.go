package observability

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/route-registry/internal/platform/logger"
)

// Metrics holds the registry's counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	writes        *CounterVec
	writeLatency  *HistogramVec
	writeAttempts *HistogramVec
	lookups       *CounterVec
	lookupLatency *HistogramVec
	warmed        *CounterVec
	dbStats       *GaugeVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		writes: NewCounterVec("routes_writes_total", "Route writes by operation and outcome code.", []string{"op", "code"}),
		writeLatency: NewHistogramVec(
			"routes_write_duration_seconds",
			"Route write latency in seconds, retries included.",
			[]string{"op"},
			nil,
		),
		writeAttempts: NewHistogramVec(
			"routes_write_attempts",
			"Transaction attempts per route write.",
			[]string{"op"},
			[]float64{1, 2, 3, 5, 10},
		),
		lookups: NewCounterVec("routes_lookups_total", "Path lookups by source and result.", []string{"source", "result"}),
		lookupLatency: NewHistogramVec(
			"routes_lookup_duration_seconds",
			"Path lookup latency in seconds.",
			[]string{"source"},
			nil,
		),
		warmed:  NewCounterVec("routes_cache_warmed_total", "Live routes written to the lookup cache by warm runs.", []string{"locale"}),
		dbStats: NewGaugeVec("routes_db_pool", "database/sql pool statistics.", []string{"stat"}),
	}
}

// ObserveWrite records a finished create/update. code is "ok" or the error code.
func (m *Metrics) ObserveWrite(op, code string, attempts int, dur time.Duration) {
	if m == nil {
		return
	}
	m.writes.Inc(op, code)
	m.writeLatency.Observe(dur.Seconds(), op)
	m.writeAttempts.Observe(float64(attempts), op)
}

// ObserveLookup records a resolve. source is "cache" or "store"; result is "live", "redirect",
// "not_found" or "error".
func (m *Metrics) ObserveLookup(source, result string, dur time.Duration) {
	if m == nil {
		return
	}
	m.lookups.Inc(source, result)
	m.lookupLatency.Observe(dur.Seconds(), source)
}

func (m *Metrics) ObserveWarm(locale string, n int) {
	if m == nil {
		return
	}
	m.warmed.Add(float64(n), locale)
}

func (m *Metrics) WriteCount(op, code string) float64 {
	if m == nil {
		return 0
	}
	return m.writes.Value(op, code)
}

func (m *Metrics) LookupCount(source, result string) float64 {
	if m == nil {
		return 0
	}
	return m.lookups.Value(source, result)
}

// CollectDBStats snapshots the connection pool behind db.
func (m *Metrics) CollectDBStats(log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		if log != nil {
			log.Warn("metrics: db stats unavailable", "error", err)
		}
		return
	}
	stats := sqlDB.Stats()
	m.dbStats.Set(float64(stats.OpenConnections), "open_connections")
	m.dbStats.Set(float64(stats.InUse), "in_use")
	m.dbStats.Set(float64(stats.Idle), "idle")
	m.dbStats.Set(float64(stats.WaitCount), "wait_count")
	m.dbStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
	m.dbStats.Set(float64(stats.MaxOpenConnections), "max_open_connections")
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range []interface{ WritePrometheus(io.Writer) error }{
		m.writes, m.writeLatency, m.writeAttempts, m.lookups, m.lookupLatency, m.warmed, m.dbStats,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

// WriteTextfile dumps the metrics to path for a node_exporter textfile collector. The file is
// replaced atomically so a scrape never sees a partial write.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".routes-metrics-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
