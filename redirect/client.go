// Package redirect implements a client for the cloud redirect API (spec §6):
// the Lambda-backed collaborator that owns the "latest" order-status row and
// serves the customer-facing /r redirect. The bridge core never serves that
// endpoint itself; cmd/bridge wires *Client in as a session.Notifier so the
// session worker can report a successful tap (PostScanComplete) once a
// session completes, when REDIRECT_BASE_URL is configured. No HTTP client
// library appears anywhere in the retrieval pack, so this wraps net/http
// directly, the same way the teacher reaches for context.Context on every
// blocking call without wrapping it in a framework.
package redirect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client calls the cloud redirect API's write/read endpoints.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New builds a Client. baseURL is the redirect API's origin, e.g.
// "https://redirect.example.com"; apiKey is sent as x-api-key on the two
// endpoints that require it.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// PostRedirect stores the order's receipt URL as the new "latest" row.
func (c *Client) PostRedirect(ctx context.Context, orderID, receiptURL string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/redirect", PostRedirectRequest{
		OrderID:    orderID,
		ReceiptURL: receiptURL,
	}, true, nil)
}

// PostScanComplete marks the "latest" row scanned.
func (c *Client) PostScanComplete(ctx context.Context, orderID string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/scan-complete", ScanCompleteRequest{
		OrderID: orderID,
	}, true, nil)
}

// GetSessionStatus fetches the current "latest" row.
func (c *Client) GetSessionStatus(ctx context.Context) (*SessionStatus, error) {
	var status SessionStatus
	if err := c.doJSON(ctx, http.MethodGet, "/api/session-status", nil, false, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, signed bool, out any) error {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("redirect: marshal request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("redirect: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if signed {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("redirect: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("redirect: %s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("redirect: decode response: %w", err)
	}
	return nil
}
