package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CronJobMetrics tracks cron job runs and cycles skipped because another
// instance held the lock.
type CronJobMetrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
	skipped     prometheus.Counter
	now         func() time.Time
}

func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cron_job_runs_total",
		Help: "Cron job runs by job and outcome (success, failure).",
	}, []string{"job", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cron_job_duration_seconds",
		Help:    "Cron job duration in seconds.",
		Buckets: []float64{.05, .1, .5, 1, 5, 15, 30, 60, 120},
	}, []string{"job"})
	lastSuccess := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cron_job_last_success_timestamp_seconds",
		Help: "Unix time of the last successful run per job.",
	}, []string{"job"})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cron_cycles_skipped_total",
		Help: "Cron cycles skipped because the lock was held elsewhere.",
	})
	reg.MustRegister(runs, duration, lastSuccess, skipped)
	return &CronJobMetrics{
		runs:        runs,
		duration:    duration,
		lastSuccess: lastSuccess,
		skipped:     skipped,
		now:         time.Now,
	}
}

// ObserveRun records one finished job run; err decides the outcome label.
func (c *CronJobMetrics) ObserveRun(job string, elapsed time.Duration, err error) {
	if c == nil || c.runs == nil {
		return
	}
	job = normalizeLabel(job)
	c.duration.WithLabelValues(job).Observe(elapsed.Seconds())
	if err != nil {
		c.runs.WithLabelValues(job, "failure").Inc()
		return
	}
	c.runs.WithLabelValues(job, "success").Inc()
	c.lastSuccess.WithLabelValues(job).Set(float64(c.now().Unix()))
}

func (c *CronJobMetrics) IncSkippedCycle() {
	if c == nil || c.skipped == nil {
		return
	}
	c.skipped.Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
