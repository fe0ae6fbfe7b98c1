package usecase

import (
	"context"

	domain "github.com/Aditya-jedi/Novyn/internal/entity"
)

// TransitionSet carries the extra fields a status transition writes
// atomically with the status itself.
type TransitionSet struct {
	PaymentRef      *domain.PaymentRef
	ReconcileNeeded *bool
}

// OrderStore is the sole write path for orders. Transition is a
// compare-and-set: it applies only when the current status equals from,
// and reports (false, nil) when another writer already moved the order.
type OrderStore interface {
	Create(ctx context.Context, o *domain.Order) error
	Get(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Order, error)
	Transition(ctx context.Context, id string, from, to domain.Status, set TransitionSet) (bool, error)
	MarkReconcileNeeded(ctx context.Context, id string) error
}

// InventoryLedger mutates per-product stock with atomic updates only; no
// caller may read-modify-write a counter.
type InventoryLedger interface {
	// Decrement refuses with ErrInsufficientStock when stock would go
	// negative, leaving the counter untouched.
	Decrement(ctx context.Context, productID string, qty int) error
	// DecrementClamped is reserved for committing an already-paid order:
	// it clamps at zero instead of refusing and reports whether it did.
	DecrementClamped(ctx context.Context, productID string, qty int) (clamped bool, err error)
}

type PaymentGateway interface {
	CreateIntent(ctx context.Context, amount int64, currency, receipt string) (*domain.Intent, error)
	FetchPayment(ctx context.Context, externalPaymentID string) (*domain.PaymentDetails, error)
}

// ProofVerifier checks the gateway's signature over a payment proof.
// Pure; safe to call repeatedly.
type ProofVerifier interface {
	Verify(externalOrderID, externalPaymentID, signature string) error
}

// PriceCatalog is the product catalog collaborator used to cross-check
// client-submitted unit prices.
type PriceCatalog interface {
	Price(ctx context.Context, productID string) (int64, error)
}

// CommitCache records which order consumed an external payment id, so proof
// replays short-circuit across processes.
type CommitCache interface {
	RememberCommit(ctx context.Context, externalPaymentID, orderID string) error
	RecallCommit(ctx context.Context, externalPaymentID string) (orderID string, ok bool, err error)
	SetStatus(ctx context.Context, orderID, status string) error
}

// EventPublisher emits checkout lifecycle events. Publishing is best-effort
// from the coordinator's point of view; durable follow-up goes through the
// ReconcileOutbox.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, msg OrderCreatedMsg) error
	PublishOrderPaid(ctx context.Context, msg OrderPaidMsg) error
	PublishReconcile(ctx context.Context, msg ReconcileMsg) error
}

// ReconcileOutbox stores reconciliation tasks durably in the same database
// as the orders, so flagged commits survive broker outages.
type ReconcileOutbox interface {
	InsertReconcileTask(ctx context.Context, payload []byte) error
}
