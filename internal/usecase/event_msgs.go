package usecase

// Published on checkout.events when a pending order is persisted.
type OrderCreatedMsg struct {
	OrderID  string `json:"orderId"`
	UserID   string `json:"userId,omitempty"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Published on checkout.events after the paid commit.
type OrderPaidMsg struct {
	OrderID           string `json:"orderId"`
	ExternalPaymentID string `json:"externalPaymentId"`
	Amount            int64  `json:"amount"`
	Currency          string `json:"currency"`
}

// Published (and written to the outbox) when a stock decrement for a paid
// order could not be applied cleanly. Drained into the operator review queue.
type ReconcileMsg struct {
	OrderID   string `json:"orderId"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Reason    string `json:"reason"` // e.g. "clamped", "decrement_failed"
}

// Consumed from the gateway's settlement topic on Kafka.
type PaymentSettledMsg struct {
	ExternalPaymentID string `json:"paymentId"`
	ExternalOrderID   string `json:"orderId"`
	Receipt           string `json:"receipt"` // internal order id
	Status            string `json:"status"`  // e.g. "captured", "settled"
}
