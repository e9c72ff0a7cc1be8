/**
 * @description
 * This package provides a client for the card payment processor's API. It
 * encapsulates authenticated HTTP requests for card tokenization, charge
 * capture into escrow, and refunds. Raw card data passes through this client
 * to the processor and is never persisted by the payments-service.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 */
package processorclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is a client for the payment processor API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new processor API client. The timeout bounds every
// capture attempt; a timed-out request surfaces as a failed charge.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// TokenizeRequest carries raw card fields to the processor's vault.
type TokenizeRequest struct {
	CardNumber string `json:"card_number"`
	ExpMonth   int    `json:"exp_month"`
	ExpYear    int    `json:"exp_year"`
	CVV        string `json:"cvv"`
	BillingZip string `json:"billing_zip"`
}

// TokenizeResponse is the processor's vault handle plus display metadata.
type TokenizeResponse struct {
	Token    string `json:"token"`
	Brand    string `json:"brand"`
	Last4    string `json:"last4"`
	ExpMonth int    `json:"exp_month"`
	ExpYear  int    `json:"exp_year"`
}

// ChargeRequest captures funds into escrow against a vaulted card token.
// Amount is in cents.
type ChargeRequest struct {
	Token       string `json:"token"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
	Reference   string `json:"reference"`
}

// ChargeResponse is the processor's record of a captured charge.
type ChargeResponse struct {
	ChargeID string `json:"charge_id"`
	Status   string `json:"status"`
}

// RefundResponse is the processor's record of a released refund.
type RefundResponse struct {
	RefundID string `json:"refund_id"`
	Status   string `json:"status"`
}

// APIError represents an error body from the processor. Its message is safe
// to surface to the paying user.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
	Code       string `json:"code,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("processor api error: %s", e.Message)
	}
	return fmt.Sprintf("processor api error: status %d", e.StatusCode)
}

// TokenizeCard vaults raw card data and returns a reusable token.
func (c *Client) TokenizeCard(ctx context.Context, req TokenizeRequest) (*TokenizeResponse, error) {
	var resp TokenizeResponse
	if err := c.post(ctx, "/v1/tokens", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ChargeCard captures a charge into escrow. Exactly one charge request is
// issued per call; the caller decides whether to retry.
func (c *Client) ChargeCard(ctx context.Context, req ChargeRequest) (*ChargeResponse, error) {
	var resp ChargeResponse
	if err := c.post(ctx, "/v1/charges", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RefundCharge returns a captured charge to the customer.
func (c *Client) RefundCharge(ctx context.Context, chargeID string) (*RefundResponse, error) {
	var resp RefundResponse
	path := fmt.Sprintf("/v1/charges/%s/refund", chargeID)
	if err := c.post(ctx, path, struct{}{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	if c.BaseURL == "" {
		return fmt.Errorf("processor base url is empty")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("processor request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read processor response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, apiErr)
		}
		return apiErr
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode processor response: %w", err)
		}
	}
	return nil
}
