package usecase

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ordersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_orders_created_total",
		Help: "Orders persisted in PENDING state",
	})

	paidCommits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_paid_commits_total",
		Help: "Paid commits by outcome",
	}, []string{"outcome"}) // committed | replayed | lost_race

	proofInvalid = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_proof_invalid_total",
		Help: "Rejected payment proofs",
	})

	reconcileFlagged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_inventory_reconcile_flagged_total",
		Help: "Line items flagged for manual inventory reconciliation",
	})
)
