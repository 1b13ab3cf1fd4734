package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/babycare-backend/internal/platform/envutil"
	"github.com/yungbote/babycare-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests    *CounterVec
	apiLatency     *HistogramVec
	apiInflight    *Gauge
	oracleRequests *CounterVec
	oracleLatency  *HistogramVec
	jobRuns        *CounterVec
	jobLatency     *HistogramVec
	jobRows        *CounterVec
	jobTriggers    *CounterVec
	socketsOpen    *Gauge
	triageOutcomes *CounterVec
	pgStats        *GaugeVec
	redisUp        *Gauge
	redisPing      *Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool { return envutil.Bool("METRICS_ENABLED", false) }

// Current is nil unless Init ran with metrics enabled. Every method on a nil
// *Metrics is a no-op.
func Current() *Metrics { return instance }

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = New()
		log.Info("metrics enabled")
	})
	return instance
}

func New() *Metrics {
	latency := []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}
	return &Metrics{
		apiRequests: NewCounterVec("babycare_api_requests_total", "API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency:  NewHistogramVec("babycare_api_request_duration_seconds", "API request latency in seconds.", []string{"method", "route", "status"}, latency),
		apiInflight: NewGauge("babycare_api_inflight_requests", "In-flight API requests."),

		oracleRequests: NewCounterVec("babycare_oracle_requests_total", "Oracle calls by backend/op/status.", []string{"backend", "op", "status"}),
		oracleLatency:  NewHistogramVec("babycare_oracle_request_duration_seconds", "Oracle call latency in seconds.", []string{"backend", "op"}, []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60}),

		jobRuns:     NewCounterVec("babycare_job_runs_total", "Batch job runs by job/status.", []string{"job", "status"}),
		jobLatency:  NewHistogramVec("babycare_job_duration_seconds", "Batch job duration in seconds.", []string{"job"}, []float64{0.1, 0.5, 1, 5, 15, 60, 300}),
		jobRows:     NewCounterVec("babycare_job_rows_total", "Rows written by batch jobs.", []string{"job"}),
		jobTriggers: NewCounterVec("babycare_job_triggers_total", "Job triggers received by job/source.", []string{"job", "source"}),

		socketsOpen:    NewGauge("babycare_psychologist_sockets_open", "Open psychologist sockets."),
		triageOutcomes: NewCounterVec("babycare_triage_outcomes_total", "Triage turn outcomes by op/kind.", []string{"op", "kind"}),

		pgStats:   NewGaugeVec("babycare_postgres_pool", "database/sql pool stats.", []string{"stat"}),
		redisUp:   NewGauge("babycare_redis_up", "1 when the last redis ping succeeded."),
		redisPing: NewGauge("babycare_redis_ping_seconds", "Last redis ping latency."),
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range []collector{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.oracleRequests, m.oracleLatency,
		m.jobRuns, m.jobLatency, m.jobRows, m.jobTriggers,
		m.socketsOpen, m.triageOutcomes,
		m.pgStats, m.redisUp, m.redisPing,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

// ObserveOracle matches oracle.ObserveFunc.
func (m *Metrics) ObserveOracle(backend, op, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.oracleRequests.Inc(backend, op, status)
	m.oracleLatency.Observe(dur.Seconds(), backend, op)
}

func (m *Metrics) ObserveJob(job, status string, rows int, dur time.Duration) {
	if m == nil {
		return
	}
	m.jobRuns.Inc(job, status)
	m.jobLatency.Observe(dur.Seconds(), job)
	if rows > 0 {
		m.jobRows.Add(float64(rows), job)
	}
}

func (m *Metrics) IncJobTrigger(job, source string) {
	if m == nil {
		return
	}
	m.jobTriggers.Inc(job, source)
}

func (m *Metrics) SocketOpened() {
	if m == nil {
		return
	}
	m.socketsOpen.Inc()
}

func (m *Metrics) SocketClosed() {
	if m == nil {
		return
	}
	m.socketsOpen.Dec()
}

func (m *Metrics) IncTriageOutcome(op, kind string) {
	if m == nil {
		return
	}
	m.triageOutcomes.Inc(op, kind)
}

func scrapeInterval() time.Duration {
	return envutil.Seconds("METRICS_SCRAPE_INTERVAL_SECONDS", 10*time.Second)
}

func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(scrapeInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					log.Warn("metrics: postgres stats unavailable", "error", err)
					continue
				}
				stats := sqlDB.Stats()
				m.pgStats.Set(float64(stats.OpenConnections), "open_connections")
				m.pgStats.Set(float64(stats.InUse), "in_use")
				m.pgStats.Set(float64(stats.Idle), "idle")
				m.pgStats.Set(float64(stats.WaitCount), "wait_count")
				m.pgStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
			}
		}
	}()
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, addr string) {
	addr = strings.TrimSpace(addr)
	if m == nil || addr == "" {
		return
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	go func() {
		ticker := time.NewTicker(scrapeInterval())
		defer ticker.Stop()
		defer rdb.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					log.Warn("metrics: redis ping failed", "error", err)
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}
