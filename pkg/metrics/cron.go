package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	cronResultOK     = "ok"
	cronResultFailed = "failed"
)

// CronMetrics tracks the scheduled maintenance jobs (order expiry, outbox
// retention) run by the cron worker.
type CronMetrics struct {
	runs          *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	lastSuccess   *prometheus.GaugeVec
	leaseContends prometheus.Counter
}

func NewCronMetrics(reg prometheus.Registerer) *CronMetrics {
	if reg == nil {
		return &CronMetrics{}
	}
	m := &CronMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cron_job_runs_total",
			Help: "Cron job runs by job and result.",
		}, []string{"job", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_cron_job_duration_seconds",
			Help:    "Wall time of a single cron job run.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}, []string{"job"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "storefront_cron_job_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run per job.",
		}, []string{"job"}),
		leaseContends: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_cron_lease_contended_total",
			Help: "Cycles skipped because another worker held the cron lease.",
		}),
	}
	reg.MustRegister(m.runs, m.duration, m.lastSuccess, m.leaseContends)
	return m
}

// ObserveRun records one job execution; a nil err counts as success.
func (m *CronMetrics) ObserveRun(job string, elapsed time.Duration, err error) {
	if m == nil || m.runs == nil {
		return
	}
	job = normalizeLabel(job)
	m.duration.WithLabelValues(job).Observe(elapsed.Seconds())
	if err != nil {
		m.runs.WithLabelValues(job, cronResultFailed).Inc()
		return
	}
	m.runs.WithLabelValues(job, cronResultOK).Inc()
	m.lastSuccess.WithLabelValues(job).SetToCurrentTime()
}

func (m *CronMetrics) IncLeaseContended() {
	if m == nil || m.leaseContends == nil {
		return
	}
	m.leaseContends.Inc()
}
