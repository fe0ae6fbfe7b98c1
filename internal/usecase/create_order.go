package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	domain "github.com/Aditya-jedi/Novyn/internal/entity"
	"github.com/Aditya-jedi/Novyn/internal/logging"
)

type CreateOrderInput struct {
	UserID    string // empty for guest checkout
	LineItems []domain.LineItem
	// TotalAmount is client-submitted and never trusted: it must equal the
	// line item sum, and unit prices are cross-checked against the catalog.
	TotalAmount int64
}

type CreateOrder struct {
	store    OrderStore
	catalog  PriceCatalog
	events   EventPublisher
	currency string
}

func NewCreateOrder(store OrderStore, catalog PriceCatalog, events EventPublisher, currency string) *CreateOrder {
	return &CreateOrder{store: store, catalog: catalog, events: events, currency: currency}
}

func (uc *CreateOrder) Execute(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	now := time.Now().UTC()
	ord := &domain.Order{
		ID:          uuid.NewString(),
		UserID:      in.UserID,
		LineItems:   in.LineItems,
		TotalAmount: in.TotalAmount,
		Status:      domain.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := ord.Validate(); err != nil {
		return nil, &ValidationError{Field: "lineItems", Reason: err.Error()}
	}
	if err := uc.crossCheckPrices(ctx, ord.LineItems); err != nil {
		return nil, err
	}

	if err := uc.store.Create(ctx, ord); err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}
	ordersCreated.Inc()

	// Best-effort notification; order creation must not fail on broker hiccups.
	if err := uc.events.PublishOrderCreated(ctx, OrderCreatedMsg{
		OrderID:  ord.ID,
		UserID:   ord.UserID,
		Amount:   ord.TotalAmount,
		Currency: uc.currency,
	}); err != nil {
		logging.FromCtx(ctx).Warn("publish order.created failed", "order_id", ord.ID, "error", err)
	}

	return ord, nil
}

func (uc *CreateOrder) crossCheckPrices(ctx context.Context, items []domain.LineItem) error {
	for _, it := range items {
		price, err := uc.catalog.Price(ctx, it.ProductID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return &ValidationError{Field: "lineItems", Reason: "unknown product " + it.ProductID}
			}
			return fmt.Errorf("catalog lookup %s: %w", it.ProductID, err)
		}
		if price != it.UnitPrice {
			return &ValidationError{
				Field:  "lineItems",
				Reason: fmt.Sprintf("price mismatch for %s: submitted %d, catalog %d", it.ProductID, it.UnitPrice, price),
			}
		}
	}
	return nil
}
