package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bookworm-cart/internal/model"
	"bookworm-cart/internal/transport"
)

// DefaultTimeout bounds a single lookup when Config.Timeout is unset.
const DefaultTimeout = 5 * time.Second

// userAgent identifies this client to the backend.
const userAgent = "Bookworm-Cart/1.0"

// maxBodyBytes caps how much of a catalog response is read.
const maxBodyBytes = 1 << 20

// Config configures the HTTP catalog client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the transport-built client; tests pass the
	// httptest server's client here.
	HTTPClient        *http.Client
	ChromeFingerprint bool
	Logger            *slog.Logger
}

// HTTPClient implements Lookup against GET {base}/books/{id}.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
	logger     *slog.Logger
}

// New creates an HTTP catalog client.
func New(cfg Config) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("catalog base URL is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	hc := cfg.HTTPClient
	if hc == nil {
		// Per-lookup deadlines come from the context; the client itself
		// carries no overall timeout.
		hc = &http.Client{Transport: transport.New(transport.Options{
			Timeout:           timeout,
			ChromeFingerprint: cfg.ChromeFingerprint,
		})}
	}
	return &HTTPClient{
		httpClient: hc,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		timeout:    timeout,
		logger:     logger,
	}, nil
}

// LookupItem fetches one book. 404 is NotFound; everything else that is not
// a well-formed 200 is Failed.
func (c *HTTPClient) LookupItem(ctx context.Context, id model.ItemID) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := c.baseURL + "/books/" + strconv.FormatInt(int64(id), 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return FailedResult(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("catalog lookup failed", "item_id", id, "error", err)
		return FailedResult(fmt.Errorf("%w: catalog: %v", model.ErrNetwork, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return FailedResult(fmt.Errorf("%w: reading catalog response: %v", model.ErrNetwork, err))
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return NotFoundResult()
	case resp.StatusCode != http.StatusOK:
		c.logger.Debug("catalog lookup rejected", "item_id", id, "status", resp.StatusCode)
		return FailedResult(fmt.Errorf("%w: catalog returned status %d", model.ErrUpstreamError, resp.StatusCode))
	}

	item, err := decodeBook(body, id)
	if err != nil {
		c.logger.Warn("catalog response malformed", "item_id", id, "error", err)
		return FailedResult(fmt.Errorf("%w: %v", model.ErrUpstreamError, err))
	}
	return FoundResult(item)
}

// bookResponse is the backend's book schema. Prices arrive as decimal
// strings ("12.50"), though numbers are accepted too.
type bookResponse struct {
	ID             int64         `json:"id"`
	BookTitle      string        `json:"book_title"`
	BookPrice      *model.Amount `json:"book_price"`
	DiscountPrice  *model.Amount `json:"discount_price"`
	AuthorName     string        `json:"author_name"`
	BookCoverPhoto string        `json:"book_cover_photo"`
	Author         *struct {
		AuthorName string `json:"author_name"`
	} `json:"author"`
}

func decodeBook(body []byte, want model.ItemID) (*Item, error) {
	var b bookResponse
	if err := json.Unmarshal(body, &b); err != nil {
		return nil, fmt.Errorf("parsing book: %w", err)
	}
	if model.ItemID(b.ID) != want {
		return nil, fmt.Errorf("book id mismatch: asked for %d, got %d", want, b.ID)
	}
	if strings.TrimSpace(b.BookTitle) == "" {
		return nil, errors.New("book has no title")
	}
	if b.BookPrice == nil || !b.BookPrice.Valid {
		return nil, errors.New("book has no price")
	}
	if b.BookPrice.Value < 0 {
		return nil, errors.New("book price is negative")
	}
	if b.BookPrice.Value > model.MaxPrice {
		return nil, errors.New("book price is out of range")
	}

	item := &Item{
		ID:         want,
		Title:      b.BookTitle,
		AuthorName: b.AuthorName,
		ImageURL:   b.BookCoverPhoto,
		UnitPrice:  b.BookPrice.Value,
	}
	if item.AuthorName == "" && b.Author != nil {
		item.AuthorName = b.Author.AuthorName
	}
	if b.DiscountPrice != nil && b.DiscountPrice.Valid {
		if b.DiscountPrice.Value < 0 {
			return nil, errors.New("discount price is negative")
		}
		if b.DiscountPrice.Value > model.MaxPrice {
			return nil, errors.New("discount price is out of range")
		}
		d := b.DiscountPrice.Value
		item.DiscountPrice = &d
	}
	return item, nil
}
