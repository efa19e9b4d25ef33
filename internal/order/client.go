// Package order submits reconciled carts to the backend and turns its
// rejections into a single message the shopper can act on.
package order

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"bookworm-cart/internal/model"
	"bookworm-cart/internal/transport"
)

// Creator creates an order on behalf of the bearer of token.
type Creator interface {
	CreateOrder(ctx context.Context, token string, req model.OrderRequest) (*model.OrderConfirmation, error)
}

// SubmitError is a non-2xx response from the order endpoint.
type SubmitError struct {
	StatusCode int
	Body       []byte
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("order rejected with status %d", e.StatusCode)
}

// Config configures HTTPCreator.
type Config struct {
	BaseURL           string
	Timeout           time.Duration
	ChromeFingerprint bool
	HTTPClient        *http.Client
}

// HTTPCreator implements Creator against POST {base}/orders/.
type HTTPCreator struct {
	httpClient *http.Client
	baseURL    string
	newKey     func() string
}

// NewHTTPCreator creates an order client.
func NewHTTPCreator(cfg Config) (*HTTPCreator, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("order base URL is required")
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = transport.NewClient(transport.Options{
			Timeout:           cfg.Timeout,
			ChromeFingerprint: cfg.ChromeFingerprint,
		})
	}
	return &HTTPCreator{
		httpClient: hc,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		newKey:     uuid.NewString,
	}, nil
}

// CreateOrder posts the order. Each call carries a fresh Idempotency-Key;
// retries of the same attempt should reuse the request, not call again.
func (c *HTTPCreator) CreateOrder(ctx context.Context, token string, orderReq model.OrderRequest) (*model.OrderConfirmation, error) {
	body, err := json.Marshal(orderReq)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders/", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Idempotency-Key", c.newKey())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrNetwork, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", model.ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &SubmitError{StatusCode: resp.StatusCode, Body: respBody}
	}

	var or orderResponse
	if err := json.Unmarshal(respBody, &or); err != nil {
		return nil, fmt.Errorf("%w: parsing order response: %v", model.ErrUpstreamError, err)
	}
	return or.confirmation()
}

// orderResponse is the backend's order schema.
type orderResponse struct {
	ID          int64        `json:"id"`
	OrderDate   backendTime  `json:"order_date"`
	OrderAmount model.Amount `json:"order_amount"`
	Status      string       `json:"status"`
	Items       []struct {
		BookID   int64        `json:"book_id"`
		Quantity int          `json:"quantity"`
		Price    model.Amount `json:"price"`
	} `json:"items"`
}

func (r orderResponse) confirmation() (*model.OrderConfirmation, error) {
	if r.ID == 0 {
		return nil, fmt.Errorf("%w: order response has no id", model.ErrUpstreamError)
	}
	conf := &model.OrderConfirmation{
		OrderID:   r.ID,
		OrderDate: time.Time(r.OrderDate),
		Amount:    r.OrderAmount.Value,
		Status:    r.Status,
		Items:     make([]model.OrderedItem, 0, len(r.Items)),
	}
	for _, it := range r.Items {
		conf.Items = append(conf.Items, model.OrderedItem{
			ItemID:   model.ItemID(it.BookID),
			Quantity: it.Quantity,
			Price:    it.Price.Value,
		})
	}
	return conf, nil
}

// backendTime accepts RFC 3339 timestamps and the zone-less ISO form the
// backend emits for naive datetimes (read as UTC).
type backendTime time.Time

var backendTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

func (t *backendTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("order_date: %w", err)
	}
	if s == "" {
		*t = backendTime{}
		return nil
	}
	for _, layout := range backendTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = backendTime(parsed)
			return nil
		}
	}
	return fmt.Errorf("order_date: unrecognized time %q", s)
}
