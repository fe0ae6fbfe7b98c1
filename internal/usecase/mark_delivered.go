package usecase

import (
	"context"

	domain "github.com/Aditya-jedi/Novyn/internal/entity"
	"github.com/Aditya-jedi/Novyn/internal/logging"
)

// MarkDelivered is the administrative PAID -> DELIVERED transition. The
// privilege check lives at the transport boundary.
type MarkDelivered struct {
	store   OrderStore
	commits CommitCache
}

func NewMarkDelivered(store OrderStore, commits CommitCache) *MarkDelivered {
	return &MarkDelivered{store: store, commits: commits}
}

func (uc *MarkDelivered) Execute(ctx context.Context, orderID string) (*domain.Order, error) {
	applied, err := uc.store.Transition(ctx, orderID, domain.StatusPaid, domain.StatusDelivered, TransitionSet{})
	if err != nil {
		return nil, err
	}

	ord, err := uc.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !applied {
		// Repeated delivery marks are harmless; anything else is a real
		// conflict (e.g. the order was never paid).
		if ord.Status != domain.StatusDelivered {
			return nil, &ConflictError{OrderID: orderID, Reason: "delivery requires a paid order, status is " + string(ord.Status)}
		}
	}

	// Cache refresh is best-effort; the store already holds the truth.
	if cerr := uc.commits.SetStatus(ctx, orderID, string(ord.Status)); cerr != nil {
		logging.FromCtx(ctx).Warn("status cache write failed", "order_id", orderID, "error", cerr)
	}
	return ord, nil
}
