package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	domain "github.com/Aditya-jedi/Novyn/internal/entity"
	"github.com/Aditya-jedi/Novyn/internal/logging"
)

// CommitResult is what a proof submission resolves to. Replayed is true when
// this proof had already been committed and no new work was performed.
type CommitResult struct {
	Order    *domain.Order
	Replayed bool
}

// SubmitProof is the reconciliation coordinator's commit path. By the time a
// valid proof arrives the gateway has captured funds, so everything after the
// signature check favors keeping the order PAID: the status transition is the
// point of no return and inventory decrements are compensating steps that may
// fail independently and get flagged, never rolled back.
type SubmitProof struct {
	store    OrderStore
	ledger   InventoryLedger
	verifier ProofVerifier
	catalog  PriceCatalog
	commits  CommitCache
	events   EventPublisher
	outbox   ReconcileOutbox
	currency string
}

func NewSubmitProof(store OrderStore, ledger InventoryLedger, verifier ProofVerifier, catalog PriceCatalog,
	commits CommitCache, events EventPublisher, outbox ReconcileOutbox, currency string) *SubmitProof {
	return &SubmitProof{
		store:    store,
		ledger:   ledger,
		verifier: verifier,
		catalog:  catalog,
		commits:  commits,
		events:   events,
		outbox:   outbox,
		currency: currency,
	}
}

func (uc *SubmitProof) Execute(ctx context.Context, orderID string, proof domain.Proof) (CommitResult, error) {
	l := logging.FromCtx(ctx).With("order_id", orderID, "payment_id", proof.ExternalPaymentID)

	if proof.ExternalOrderID == "" || proof.ExternalPaymentID == "" || proof.Signature == "" {
		return CommitResult{}, &ValidationError{Field: "proof", Reason: "externalOrderId, externalPaymentId and signature are required"}
	}

	// Signature first: a replay is only acknowledged for a proof the
	// gateway actually signed.
	if err := uc.verifier.Verify(proof.ExternalOrderID, proof.ExternalPaymentID, proof.Signature); err != nil {
		proofInvalid.Inc()
		l.Warn("payment proof rejected", "error", err)
		return CommitResult{}, ErrProofInvalid
	}

	// Cross-process replay fast path, keyed by the payment id. The durable
	// guard against one payment paying two orders is the unique payment key
	// in the order store, so a cache outage only costs the shortcut.
	prevOrderID, ok, err := uc.commits.RecallCommit(ctx, proof.ExternalPaymentID)
	if err != nil {
		l.Warn("commit cache unavailable", "error", err)
	}
	if ok {
		if prevOrderID != orderID {
			return CommitResult{}, &ConflictError{OrderID: orderID, Reason: "payment " + proof.ExternalPaymentID + " already committed to order " + prevOrderID}
		}
		ord, err := uc.store.Get(ctx, orderID)
		if err != nil {
			return CommitResult{}, err
		}
		paidCommits.WithLabelValues("replayed").Inc()
		return CommitResult{Order: ord, Replayed: true}, nil
	}

	ord, err := uc.store.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Orphan proof: funds may exist gateway-side with no local
			// order. The gateway stays the source of truth for those
			// (findable by receipt); nothing is persisted here.
			l.Warn("proof submitted for unknown order")
		}
		return CommitResult{}, err
	}

	if res, done, err := uc.resolveSettled(ord, proof); done {
		return res, err
	}
	if ord.Status == domain.StatusFailed {
		return CommitResult{}, &ConflictError{OrderID: orderID, Reason: "order already failed; new payments against it are rejected"}
	}

	// Commit-time price re-verification. A mismatch aborts before any
	// mutation; a catalog outage must not block a commit whose funds were
	// already captured.
	if err := uc.recheckPrices(ctx, ord); err != nil {
		return CommitResult{}, err
	}

	ref := domain.PaymentRef{
		ExternalPaymentID: proof.ExternalPaymentID,
		ExternalOrderID:   proof.ExternalOrderID,
		Status:            "paid",
	}
	applied, err := uc.store.Transition(ctx, ord.ID, domain.StatusPending, domain.StatusPaid, TransitionSet{PaymentRef: &ref})
	if err != nil {
		var cerr *ConflictError
		if errors.As(err, &cerr) {
			// The store's unique payment key refused the commit: this
			// payment already paid another order.
			return CommitResult{}, cerr
		}
		return CommitResult{}, fmt.Errorf("commit order %s: %w", ord.ID, err)
	}
	if !applied {
		// Another commit won the compare-and-set. Benign race: return
		// whatever it produced.
		cur, err := uc.store.Get(ctx, ord.ID)
		if err != nil {
			return CommitResult{}, err
		}
		if res, done, err := uc.resolveSettled(cur, proof); done {
			paidCommits.WithLabelValues("lost_race").Inc()
			return res, err
		}
		return CommitResult{}, &ConflictError{OrderID: ord.ID, Reason: "concurrent transition moved order to " + string(cur.Status)}
	}

	ord.Status = domain.StatusPaid
	ord.PaymentRef = &ref

	// This caller won the transition, so it alone decrements stock.
	uc.applyInventory(ctx, ord, l)

	if err := uc.commits.RememberCommit(ctx, proof.ExternalPaymentID, ord.ID); err != nil {
		l.Warn("commit cache write failed", "error", err)
	}
	if err := uc.commits.SetStatus(ctx, ord.ID, string(ord.Status)); err != nil {
		l.Warn("status cache write failed", "error", err)
	}
	if err := uc.events.PublishOrderPaid(ctx, OrderPaidMsg{
		OrderID:           ord.ID,
		ExternalPaymentID: proof.ExternalPaymentID,
		Amount:            ord.TotalAmount,
		Currency:          uc.currency,
	}); err != nil {
		l.Warn("publish order.paid failed", "error", err)
	}

	paidCommits.WithLabelValues("committed").Inc()
	return CommitResult{Order: ord}, nil
}

// resolveSettled handles orders that already carry a payment: the same
// payment id is an idempotent replay, a different one is an explicit
// conflict. done is false when the order is still open for commit.
func (uc *SubmitProof) resolveSettled(ord *domain.Order, proof domain.Proof) (CommitResult, bool, error) {
	if ord.Status != domain.StatusPaid && ord.Status != domain.StatusDelivered {
		return CommitResult{}, false, nil
	}
	if ord.PaymentRef != nil && ord.PaymentRef.ExternalPaymentID == proof.ExternalPaymentID {
		paidCommits.WithLabelValues("replayed").Inc()
		return CommitResult{Order: ord, Replayed: true}, true, nil
	}
	return CommitResult{}, true, &ConflictError{OrderID: ord.ID, Reason: "order already paid by a different payment"}
}

func (uc *SubmitProof) recheckPrices(ctx context.Context, ord *domain.Order) error {
	for _, it := range ord.LineItems {
		price, err := uc.catalog.Price(ctx, it.ProductID)
		if err != nil {
			logging.FromCtx(ctx).Warn("catalog recheck unavailable, proceeding",
				"order_id", ord.ID, "product_id", it.ProductID, "error", err)
			continue
		}
		if price != it.UnitPrice {
			return &ValidationError{
				Field:  "lineItems",
				Reason: fmt.Sprintf("price of %s changed: order has %d, catalog has %d", it.ProductID, it.UnitPrice, price),
			}
		}
	}
	return nil
}

// applyInventory decrements stock for every line item. Failures and clamped
// decrements do not revert the paid order; they flag it for operator review,
// durably via the outbox and best-effort via the broker.
func (uc *SubmitProof) applyInventory(ctx context.Context, ord *domain.Order, l *slog.Logger) {
	for _, it := range ord.LineItems {
		clamped, err := uc.ledger.DecrementClamped(ctx, it.ProductID, it.Quantity)
		if err == nil && !clamped {
			continue
		}

		reason := "clamped"
		if err != nil {
			reason = "decrement_failed"
			l.Error("stock decrement failed", "product_id", it.ProductID, "qty", it.Quantity, "error", err)
		} else {
			l.Warn("stock clamped at zero", "product_id", it.ProductID, "qty", it.Quantity)
		}
		uc.flagReconcile(ctx, ord, it, reason, l)
	}
}

func (uc *SubmitProof) flagReconcile(ctx context.Context, ord *domain.Order, it domain.LineItem, reason string, l *slog.Logger) {
	reconcileFlagged.Inc()
	if !ord.InventoryReconciliationNeeded {
		ord.InventoryReconciliationNeeded = true
		if err := uc.store.MarkReconcileNeeded(ctx, ord.ID); err != nil {
			l.Error("failed to flag order for reconciliation", "error", err)
		}
	}

	msg := ReconcileMsg{OrderID: ord.ID, ProductID: it.ProductID, Quantity: it.Quantity, Reason: reason}
	if payload, err := json.Marshal(msg); err == nil {
		if err := uc.outbox.InsertReconcileTask(ctx, payload); err != nil {
			l.Error("reconcile outbox write failed", "error", err)
		}
	}
	if err := uc.events.PublishReconcile(ctx, msg); err != nil {
		l.Warn("publish inventory.reconcile failed", "error", err)
	}
}
