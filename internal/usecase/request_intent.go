package usecase

import (
	"context"
	"fmt"

	domain "github.com/Aditya-jedi/Novyn/internal/entity"
)

// RequestIntent asks the gateway to reserve the order's total. It never
// mutates order status: an intent is not proof of payment. Repeating the
// call is safe; the gateway deduplicates by receipt (the order id).
type RequestIntent struct {
	store    OrderStore
	gateway  PaymentGateway
	currency string
}

func NewRequestIntent(store OrderStore, gateway PaymentGateway, currency string) *RequestIntent {
	return &RequestIntent{store: store, gateway: gateway, currency: currency}
}

func (uc *RequestIntent) Execute(ctx context.Context, orderID string) (*domain.Intent, error) {
	ord, err := uc.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if ord.Status != domain.StatusPending {
		return nil, &ConflictError{OrderID: orderID, Reason: fmt.Sprintf("intent requires a pending order, status is %s", ord.Status)}
	}

	intent, err := uc.gateway.CreateIntent(ctx, ord.TotalAmount, uc.currency, ord.ID)
	if err != nil {
		return nil, err
	}
	return intent, nil
}
