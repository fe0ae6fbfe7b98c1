package queue

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Aditya-jedi/Novyn/internal/logging"
	"github.com/Aditya-jedi/Novyn/internal/usecase"
)

var reconcileDrained = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "checkout_reconcile_tasks_drained_total",
	Help: "Inventory reconcile tasks consumed from the operator queue",
}, []string{"reason"})

// ReconcileHandler drains inventory.reconcile.q. Paid orders whose stock
// decrement was clamped or failed end up here; the handler surfaces them
// for manual operator review. Intended for queue.JSONHandler[ReconcileMsg].
type ReconcileHandler struct{}

func NewReconcileHandler() *ReconcileHandler { return &ReconcileHandler{} }

func (h *ReconcileHandler) HandleReconcile(ctx context.Context, msg usecase.ReconcileMsg) error {
	reconcileDrained.WithLabelValues(msg.Reason).Inc()
	// Warn level: these are exactly the records an operator has to act on.
	logging.FromCtx(ctx).Warn("inventory reconciliation required",
		"order_id", msg.OrderID,
		"product_id", msg.ProductID,
		"qty", msg.Quantity,
		"reason", msg.Reason,
	)
	return nil
}
