package intake

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	idempotencyHeader  = "Idempotency-Key"
)

// HTTPSubmitter posts drafts to the order API.
type HTTPSubmitter struct {
	baseURL string
	http    *http.Client
}

// NewHTTPSubmitter constructs a submitter for the API at baseURL. A nil client uses one
// with a 10s timeout.
func NewHTTPSubmitter(baseURL string, client *http.Client) *HTTPSubmitter {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &HTTPSubmitter{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    client,
	}
}

type receiptPayload struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

// Submit implements Submitter.
func (c *HTTPSubmitter) Submit(ctx context.Context, d Draft) (Receipt, error) {
	if err := d.Validate(); err != nil {
		return Receipt{}, err
	}
	endpoint, err := url.JoinPath(c.baseURL, "orders", "drafts")
	if err != nil {
		return Receipt{}, err
	}
	payload, err := json.Marshal(d)
	if err != nil {
		return Receipt{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return Receipt{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(idempotencyHeader, d.IdempotencyKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return Receipt{}, fmt.Errorf("intake: post draft: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return Receipt{}, fmt.Errorf("intake: draft status %d: %s", resp.StatusCode, drainError(resp.Body))
	}

	var body receiptPayload
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Receipt{}, fmt.Errorf("intake: decode receipt: %w", err)
	}
	ref := strings.TrimSpace(body.OrderID)
	if ref == "" {
		ref = d.ID
	}
	status := strings.TrimSpace(body.Status)
	if status == "" {
		status = "received"
	}
	return Receipt{DraftID: d.ID, Reference: ref, Status: status}, nil
}

func drainError(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 256))
	return strings.TrimSpace(string(b))
}
