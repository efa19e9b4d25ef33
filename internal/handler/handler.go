// Package handler provides the HTTP and MCP surfaces of the cart service.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"bookworm-cart/internal/cart"
	"bookworm-cart/internal/catalog"
	"bookworm-cart/internal/checkout"
	"bookworm-cart/internal/metrics"
	"bookworm-cart/internal/model"
)

// Checkouter runs one checkout attempt.
type Checkouter interface {
	Checkout(ctx context.Context) (*checkout.Result, error)
}

// Session manages the shopper's sign-in. *auth.TokenGate implements it.
type Session interface {
	IsAuthenticated() bool
	SignInPending() bool
	Login(ctx context.Context, email, password string) error
	SignOut()
}

// Deps are the Handler's collaborators. Catalog and Metrics are optional.
type Deps struct {
	Cart     *cart.Store
	Catalog  catalog.Lookup
	Checkout Checkouter
	Session  Session
	Metrics  *metrics.Recorder
	Logger   *slog.Logger
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	cart     *cart.Store
	catalog  catalog.Lookup
	checkout Checkouter
	session  Session
	metrics  *metrics.Recorder
	logger   *slog.Logger
}

// New creates a Handler.
func New(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		cart:     d.Cart,
		catalog:  d.Catalog,
		checkout: d.Checkout,
		session:  d.Session,
		metrics:  d.Metrics,
		logger:   logger,
	}
}

// RegisterRoutes registers all HTTP routes with the given ServeMux.
// Uses Go 1.22+ method routing patterns.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Cart
	mux.HandleFunc("GET /cart", h.handleGetCart)
	mux.HandleFunc("POST /cart/items", h.handleAddItem)
	mux.HandleFunc("PUT /cart/items/{id}", h.handleUpdateQuantity)
	mux.HandleFunc("DELETE /cart/items/{id}", h.handleRemoveItem)
	mux.HandleFunc("DELETE /cart", h.handleClearCart)

	// Checkout and sign-in
	mux.HandleFunc("POST /checkout", h.handleCheckout)
	mux.HandleFunc("GET /session", h.handleGetSession)
	mux.HandleFunc("POST /session", h.handleLogin)
	mux.HandleFunc("DELETE /session", h.handleLogout)

	// MCP transport - JSON-RPC endpoint using official MCP SDK
	mux.Handle("/mcp", h.NewMCPHandler())

	// Operations
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.Handle("GET /metrics", h.metrics.Handler())
}

// === Response Helpers ===

// writeJSON sends a JSON response with the given status code.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeError sends an error response, extracting status/code from APIError if present.
// Uses errors.As() to unwrap error chains (e.g., fmt.Errorf wrapping).
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	apiErr := toAPIError(err)
	if apiErr.Code == "INTERNAL_ERROR" {
		h.logger.Error("internal error", slog.String("error", err.Error()))
	}

	h.writeJSON(w, apiErr.StatusCode, errorResponse{
		Error: errorBody{
			Code:    apiErr.Code,
			Message: apiErr.Message,
		},
	})
}

// toAPIError finds the APIError in err's chain or wraps err as internal.
func toAPIError(err error) *model.APIError {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return model.NewInternalError(err)
}

// errorResponse is the JSON structure for error responses.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MaxRequestBodySize limits JSON request bodies to 1MB to prevent DoS.
const MaxRequestBodySize = 1 << 20 // 1MB

// decodeJSON reads JSON from request body into v.
// Limits body size to MaxRequestBodySize to prevent memory exhaustion.
// Returns an APIError if decoding fails.
func decodeJSON(r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, MaxRequestBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// Don't expose internal error details to client
		return model.NewValidationError("body", "invalid JSON")
	}
	return nil
}

// handleHealth returns a simple health check response.
// GET /health, GET /healthz
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

type healthResponse struct {
	Status string `json:"status"`
}
