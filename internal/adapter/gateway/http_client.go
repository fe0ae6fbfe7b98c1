package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	domain "github.com/Aditya-jedi/Novyn/internal/entity"
	"github.com/Aditya-jedi/Novyn/internal/security"
	"github.com/Aditya-jedi/Novyn/internal/usecase"
)

var gatewayRetries = promauto.NewCounter(prometheus.CounterOpts{
	Name: "checkout_gateway_retries_total",
	Help: "Retried payment gateway calls",
})

// Client talks to the external payment provider's REST API. Transient
// failures (timeouts, 5xx) are retried with exponential backoff before
// surfacing; 4xx responses surface immediately as non-retryable.
type Client struct {
	hc         *http.Client
	baseURL    string
	keyID      string
	secret     string
	timeout    time.Duration
	maxRetries int
	retryBase  time.Duration
	ua         string
}

func NewClient(baseURL string, m *security.GatewayMaterial, timeout time.Duration, maxRetries int) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Client{
		hc:         &http.Client{},
		baseURL:    baseURL,
		keyID:      m.KeyID,
		secret:     string(m.Secret),
		timeout:    timeout,
		maxRetries: maxRetries,
		retryBase:  200 * time.Millisecond,
		ua:         "novyn-checkout/1.0",
	}
}

type createIntentReq struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type createIntentResp struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

func (c *Client) CreateIntent(ctx context.Context, amount int64, currency, receipt string) (*domain.Intent, error) {
	body, err := json.Marshal(createIntentReq{Amount: amount, Currency: currency, Receipt: receipt})
	if err != nil {
		return nil, fmt.Errorf("marshal intent request: %w", err)
	}

	var resp createIntentResp
	if err := c.doJSON(ctx, http.MethodPost, "/v1/orders", body, &resp); err != nil {
		return nil, err
	}
	return &domain.Intent{
		ExternalOrderID: resp.ID,
		Amount:          resp.Amount,
		Currency:        resp.Currency,
		Receipt:         resp.Receipt,
	}, nil
}

func (c *Client) FetchPayment(ctx context.Context, externalPaymentID string) (*domain.PaymentDetails, error) {
	var resp domain.PaymentDetails
	if err := c.doJSON(ctx, http.MethodGet, "/v1/payments/"+externalPaymentID, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// doJSON performs one logical call: up to 1+maxRetries attempts, sleeping
// retryBase*2^n between them. The per-attempt deadline is injected only
// when the caller did not set one (same convention as the rest of the
// outbound clients).
func (c *Client) doJSON(ctx context.Context, method, path string, body []byte, out any) error {
	var lastErr *usecase.GatewayError

	for attempt := 0; ; attempt++ {
		err := c.attempt(ctx, method, path, body, out)
		if err == nil {
			return nil
		}

		gwErr, ok := err.(*usecase.GatewayError)
		if !ok {
			return err
		}
		lastErr = gwErr
		if !gwErr.Retryable || attempt >= c.maxRetries {
			return lastErr
		}

		gatewayRetries.Inc()
		backoff := c.retryBase << attempt // 200ms, 400ms, 800ms, ...
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return &usecase.GatewayError{Retryable: true, Err: ctx.Err()}
		}
	}
}

func (c *Client) attempt(ctx context.Context, method, path string, body []byte, out any) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	req.SetBasicAuth(c.keyID, c.secret)
	req.Header.Set("User-Agent", c.ua)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		// network errors and timeouts are worth retrying
		return &usecase.GatewayError{Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &usecase.GatewayError{Retryable: false, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
		}
		return nil
	case resp.StatusCode >= 500:
		return &usecase.GatewayError{Retryable: true, Status: resp.StatusCode, Err: fmt.Errorf("gateway %s %s: %s", method, path, resp.Status)}
	default:
		return &usecase.GatewayError{Retryable: false, Status: resp.StatusCode, Err: fmt.Errorf("gateway %s %s: %s", method, path, resp.Status)}
	}
}

var _ usecase.PaymentGateway = (*Client)(nil)
