package domain

import (
	"errors"
	"time"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusDelivered Status = "DELIVERED"
	StatusFailed    Status = "FAILED"
)

var (
	ErrEmptyOrder        = errors.New("order has no line items")
	ErrInvalidQuantity   = errors.New("line item quantity must be at least 1")
	ErrInvalidUnitPrice  = errors.New("line item unit price must not be negative")
	ErrTotalMismatch     = errors.New("total amount does not match line item sum")
	ErrIllegalTransition = errors.New("illegal status transition")
)

// LineItem is one product position inside an order. UnitPrice is in minor
// units (paise) and is frozen at order creation.
type LineItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
}

// PaymentRef links an order to the gateway-side payment. Populated only
// after proof verification succeeded.
type PaymentRef struct {
	ExternalPaymentID string `json:"externalPaymentId"`
	ExternalOrderID   string `json:"externalOrderId"`
	Status            string `json:"status"`
}

type Order struct {
	ID        string
	UserID    string // empty for guest checkout
	LineItems []LineItem
	// TotalAmount is immutable once set; Validate enforces it equals the
	// line item sum.
	TotalAmount int64
	Status      Status
	PaymentRef  *PaymentRef
	// InventoryReconciliationNeeded marks orders whose stock decrement
	// could not be applied cleanly after the paid commit. Operator review
	// clears it out of band.
	InventoryReconciliationNeeded bool
	CreatedAt                     time.Time
	UpdatedAt                     time.Time
}

// LineTotal returns the sum of quantity*unitPrice across items.
func LineTotal(items []LineItem) int64 {
	var sum int64
	for _, it := range items {
		sum += int64(it.Quantity) * it.UnitPrice
	}
	return sum
}

func (o *Order) Validate() error {
	if len(o.LineItems) == 0 {
		return ErrEmptyOrder
	}
	for _, it := range o.LineItems {
		if it.Quantity < 1 {
			return ErrInvalidQuantity
		}
		if it.UnitPrice < 0 {
			return ErrInvalidUnitPrice
		}
	}
	if o.TotalAmount != LineTotal(o.LineItems) {
		return ErrTotalMismatch
	}
	return nil
}

// legalTransitions is the full forward-only lifecycle. Anything not listed
// is illegal; there is no way back from PAID, DELIVERED or FAILED.
var legalTransitions = map[Status][]Status{
	StatusPending: {StatusPaid, StatusFailed},
	StatusPaid:    {StatusDelivered},
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to Status) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.LineItems = append([]LineItem(nil), o.LineItems...)
	if o.PaymentRef != nil {
		ref := *o.PaymentRef
		clone.PaymentRef = &ref
	}
	return &clone
}
