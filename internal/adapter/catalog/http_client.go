package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Aditya-jedi/Novyn/internal/usecase"
)

// Client looks up catalog prices for the server-side cross-check of
// client-submitted line items. The catalog is a plain internal HTTP
// service; failures are surfaced as-is and the callers decide whether a
// lookup outage is fatal for their path.
type Client struct {
	hc      *http.Client
	baseURL string
	timeout time.Duration
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{hc: &http.Client{}, baseURL: baseURL, timeout: timeout}
}

type priceResp struct {
	ProductID string `json:"productId"`
	Price     int64  `json:"price"`
}

func (c *Client) Price(ctx context.Context, productID string) (int64, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/products/"+productID+"/price", nil)
	if err != nil {
		return 0, fmt.Errorf("build catalog request: %w", err)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return 0, fmt.Errorf("catalog price %s: %w", productID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return 0, usecase.ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return 0, fmt.Errorf("catalog price %s: %s", productID, resp.Status)
	}

	var out priceResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode catalog response: %w", err)
	}
	return out.Price, nil
}

var _ usecase.PriceCatalog = (*Client)(nil)
