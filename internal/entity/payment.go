package domain

// Intent is the gateway-side reservation of an amount. Receipt carries the
// internal order id so gateway state can be correlated back to the order.
type Intent struct {
	ExternalOrderID string `json:"externalOrderId"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	Receipt         string `json:"receipt"`
}

// Proof is submitted by the caller after completing payment with the
// gateway. Signature is a hex HMAC over externalOrderId|externalPaymentId.
type Proof struct {
	ExternalOrderID   string `json:"externalOrderId"`
	ExternalPaymentID string `json:"externalPaymentId"`
	Signature         string `json:"signature"`
}

// PaymentDetails is the gateway's read model for a captured payment.
// Audit/display only; never on the verification critical path.
type PaymentDetails struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Method    string `json:"method"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Email     string `json:"email"`
	Contact   string `json:"contact"`
	CreatedAt int64  `json:"created_at"`
}
