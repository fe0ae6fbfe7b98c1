package kafka

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/Aditya-jedi/Novyn/internal/entity"
	"github.com/Aditya-jedi/Novyn/internal/logging"
	"github.com/Aditya-jedi/Novyn/internal/usecase"
)

// SettlementStore is the slice of order persistence the settlement
// listener needs.
type SettlementStore interface {
	Get(ctx context.Context, orderID string) (*domain.Order, error)
	UpdatePaymentStatus(ctx context.Context, orderID, externalPaymentID, status string) (bool, error)
}

// StatusCache mirrors usecase.CommitCache's read-model half.
type StatusCache interface {
	SetStatus(ctx context.Context, orderID, status string) error
}

// PaymentSettledHandler applies asynchronous settlement notices from the
// gateway onto orders that already committed a proof. It never changes the
// order lifecycle status; it only refreshes the recorded payment status.
type PaymentSettledHandler struct {
	store SettlementStore
	cache StatusCache
}

func NewPaymentSettledHandler(store SettlementStore, cache StatusCache) *PaymentSettledHandler {
	return &PaymentSettledHandler{store: store, cache: cache}
}

func (h *PaymentSettledHandler) Handle(ctx context.Context, ev usecase.PaymentSettledMsg) error {
	log := logging.New("settlement-listener")

	if ev.ExternalPaymentID == "" || ev.ExternalOrderID == "" {
		log.Warn("settlement event missing identifiers, dropping",
			"payment_id", ev.ExternalPaymentID, "order_id", ev.ExternalOrderID)
		return nil
	}

	ord, err := h.store.Get(ctx, ev.Receipt)
	if errors.Is(err, usecase.ErrNotFound) {
		// Settlement may race order lookup or belong to another deployment.
		log.Warn("settlement for unknown order, dropping",
			"receipt", ev.Receipt, "payment_id", ev.ExternalPaymentID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load order %s: %w", ev.Receipt, err)
	}

	if ord.PaymentRef == nil || ord.PaymentRef.ExternalPaymentID != ev.ExternalPaymentID {
		log.Warn("settlement payment does not match committed proof, dropping",
			"order_id", ord.ID, "payment_id", ev.ExternalPaymentID)
		return nil
	}
	if ord.PaymentRef.Status == ev.Status {
		return nil
	}

	applied, err := h.store.UpdatePaymentStatus(ctx, ord.ID, ev.ExternalPaymentID, ev.Status)
	if err != nil {
		return fmt.Errorf("stamp settlement on order %s: %w", ord.ID, err)
	}
	if !applied {
		// Proof ref changed underneath us; the next event will reconcile.
		log.Warn("settlement lost update race, dropping", "order_id", ord.ID)
		return nil
	}

	if h.cache != nil {
		if err := h.cache.SetStatus(ctx, ord.ID, string(ord.Status)); err != nil {
			log.Warn("status cache refresh failed", "order_id", ord.ID, "error", err)
		}
	}

	log.Info("payment settlement recorded",
		"order_id", ord.ID, "payment_id", ev.ExternalPaymentID, "status", ev.Status)
	return nil
}
