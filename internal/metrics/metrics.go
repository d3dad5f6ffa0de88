// Package metrics registers the billing service's prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the counters, gauges and histograms recorded by billing
// operations and scheduled jobs.
type Metrics struct {
	InvoicesCreated  prometheus.Counter
	InvoicesSkipped  prometheus.Counter
	TenantsSuspended prometheus.Counter
	JobSkippedLocked *prometheus.CounterVec
	JobDuration      *prometheus.HistogramVec
	OpenInvoices     prometheus.Gauge
}

// New registers all billing metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		InvoicesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "billing_invoices_created_total",
			Help: "Invoices created by scheduled or manual issuance runs.",
		}),
		InvoicesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "billing_invoices_skipped_total",
			Help: "Tenants skipped during issuance (free month, no price, already issued).",
		}),
		TenantsSuspended: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "billing_tenants_suspended_total",
			Help: "Subscriptions suspended by enforcement runs.",
		}),
		JobSkippedLocked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billing_job_skipped_locked_total",
			Help: "Scheduled job ticks skipped because the distributed lock was held.",
		}, []string{"job"}),
		JobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "billing_job_duration_seconds",
			Help:    "Duration of scheduled billing jobs.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"job", "outcome"}),
		OpenInvoices: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "billing_open_invoices",
			Help: "Open invoices observed by the most recent enforcement run.",
		}),
	}

	reg.MustRegister(
		m.InvoicesCreated,
		m.InvoicesSkipped,
		m.TenantsSuspended,
		m.JobSkippedLocked,
		m.JobDuration,
		m.OpenInvoices,
	)
	return m
}

// NewNop returns metrics bound to a throwaway registry, for tests.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
