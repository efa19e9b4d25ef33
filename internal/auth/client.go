package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bookworm-cart/internal/model"
	"bookworm-cart/internal/transport"
)

var (
	errNoClient       = errors.New("auth client not configured")
	errNoRefreshToken = fmt.Errorf("%w: no refresh token", model.ErrUnauthorized)
)

// Client talks to the backend's /auth endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// ClientConfig configures NewClient.
type ClientConfig struct {
	BaseURL           string
	Timeout           time.Duration
	ChromeFingerprint bool
	HTTPClient        *http.Client
}

// NewClient creates an auth client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("auth base URL is required")
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = transport.NewClient(transport.Options{
			Timeout:           cfg.Timeout,
			ChromeFingerprint: cfg.ChromeFingerprint,
		})
	}
	return &Client{httpClient: hc, baseURL: strings.TrimSuffix(cfg.BaseURL, "/")}, nil
}

// Login posts the OAuth2 password form; the backend takes the email as
// the username.
func (c *Client) Login(ctx context.Context, email, password string) (*Tokens, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", email)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.doToken(req)
}

// Refresh exchanges a refresh token for a new access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	body, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/refresh", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doToken(req)
}

func (c *Client) doToken(req *http.Request) (*Tokens, error) {
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, model.NewNetworkError("auth", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, model.NewNetworkError("auth", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, model.NewUnauthorizedError(detailOr(body, "invalid credentials"))
	case resp.StatusCode >= 400:
		return nil, model.NewUpstreamError("auth", fmt.Errorf("status %d: %s", resp.StatusCode, detailOr(body, http.StatusText(resp.StatusCode))))
	}

	var t Tokens
	if err := json.Unmarshal(body, &t); err != nil {
		return nil, model.NewUpstreamError("auth", fmt.Errorf("parsing token response: %w", err))
	}
	if t.AccessToken == "" {
		return nil, model.NewUpstreamError("auth", errors.New("token response has no access_token"))
	}
	return &t, nil
}

// detailOr extracts a string "detail" from an error body.
func detailOr(body []byte, fallback string) string {
	var e struct {
		Detail any `json:"detail"`
	}
	if json.Unmarshal(body, &e) == nil {
		if s, ok := e.Detail.(string); ok && s != "" {
			return s
		}
	}
	return fallback
}
