package usecase

import (
	"context"

	domain "github.com/Aditya-jedi/Novyn/internal/entity"
)

// GetOrder serves the read side: single order, per-user listing, and the
// gateway-enriched payment view used by audit/display screens.
type GetOrder struct {
	store   OrderStore
	gateway PaymentGateway
}

func NewGetOrder(store OrderStore, gateway PaymentGateway) *GetOrder {
	return &GetOrder{store: store, gateway: gateway}
}

func (uc *GetOrder) ByID(ctx context.Context, orderID string) (*domain.Order, error) {
	return uc.store.Get(ctx, orderID)
}

func (uc *GetOrder) ListByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	return uc.store.ListByUser(ctx, userID)
}

// Payment looks up the captured payment at the gateway. Read-only; not on
// the verification critical path.
func (uc *GetOrder) Payment(ctx context.Context, orderID string) (*domain.PaymentDetails, error) {
	ord, err := uc.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if ord.PaymentRef == nil || ord.PaymentRef.ExternalPaymentID == "" {
		return nil, ErrNotFound
	}
	return uc.gateway.FetchPayment(ctx, ord.PaymentRef.ExternalPaymentID)
}
