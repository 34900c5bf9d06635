package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReconcilesTotal counts reconciliation runs by outcome
	// (synced, transition, upstream_error, not_provisioned).
	ReconcilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dcv_reconciles_total",
			Help: "Total number of domain reconciliations by outcome",
		},
		[]string{"outcome"},
	)

	// TransitionsTotal counts domain state transitions by new state.
	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dcv_state_transitions_total",
			Help: "Total number of domain state transitions by new state",
		},
		[]string{"state"},
	)

	// JobsTotal counts finished jobs by type and terminal status.
	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dcv_jobs_total",
			Help: "Total number of finished jobs by type and status",
		},
		[]string{"type", "status"},
	)

	// WebhookDeliveriesTotal counts webhook delivery attempts by result.
	WebhookDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dcv_webhook_deliveries_total",
			Help: "Total number of webhook delivery attempts by result",
		},
		[]string{"result"},
	)
)
