package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "viagens"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		},
		[]string{"route", "method", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	paymentsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_recorded_total",
			Help:      "Payments recorded by method.",
		},
		[]string{"method"},
	)

	paymentsAmount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_amount_cents_total",
			Help:      "Sum of recorded payments, in cents.",
		},
	)

	installmentsGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "installments_generated_total",
			Help:      "Installments created by the generator.",
		},
	)

	installmentsOverdue = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "installments_overdue_total",
			Help:      "Installments flagged overdue by the sweeper.",
		},
	)

	outboxTasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_tasks_total",
			Help:      "Outbox task outcomes by type.",
		},
		[]string{"type", "outcome"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			paymentsRecorded,
			paymentsAmount,
			installmentsGenerated,
			installmentsOverdue,
			outboxTasks,
		)
	})
}

func ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

func IncPayment(method string, amountCents int64) {
	paymentsRecorded.WithLabelValues(method).Inc()
	paymentsAmount.Add(float64(amountCents))
}

func AddInstallmentsGenerated(n int) {
	installmentsGenerated.Add(float64(n))
}

func AddInstallmentsOverdue(n int) {
	installmentsOverdue.Add(float64(n))
}

// IncOutbox counts a task outcome: completed, retry or failed.
func IncOutbox(taskType, outcome string) {
	outboxTasks.WithLabelValues(taskType, outcome).Inc()
}
