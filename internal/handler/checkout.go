package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"bookworm-cart/internal/model"
	"bookworm-cart/internal/reconcile"
)

// checkoutResponse is returned by POST /checkout. A blocked checkout
// carries the messages and the cart as it stands after removals.
type checkoutResponse struct {
	Passed   bool                     `json:"passed"`
	Order    *model.OrderConfirmation `json:"order,omitempty"`
	Messages []string                 `json:"messages"`
	Cart     *model.CartState         `json:"cart,omitempty"`
}

// handleCheckout reconciles the cart and, if nothing drifted, places the order.
// POST /checkout
func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	h.logger.InfoContext(ctx, "checkout requested",
		slog.Int("lines", len(h.cart.Snapshot().Lines)),
	)

	res, err := h.checkout.Checkout(ctx)
	if err != nil {
		if errors.Is(err, reconcile.ErrAbandoned) {
			// The client is gone; nobody will read a response.
			h.logger.InfoContext(ctx, "checkout abandoned by client")
			return
		}
		h.writeError(w, err)
		return
	}

	if !res.Placed() {
		snap := h.cart.Snapshot()
		h.writeJSON(w, http.StatusConflict, checkoutResponse{
			Passed:   false,
			Messages: res.Messages,
			Cart:     &snap,
		})
		return
	}

	h.writeJSON(w, http.StatusCreated, checkoutResponse{
		Passed:   true,
		Order:    res.Confirmation,
		Messages: []string{},
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Authenticated bool `json:"authenticated"`
	SignInPending bool `json:"signInPending"`
}

// handleGetSession reports sign-in state.
// GET /session
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, sessionResponse{
		Authenticated: h.session.IsAuthenticated(),
		SignInPending: h.session.SignInPending(),
	})
}

// handleLogin signs in against the backend.
// POST /session
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		h.writeError(w, model.NewValidationError("credentials", "email and password are required"))
		return
	}

	if err := h.session.Login(r.Context(), req.Email, req.Password); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sessionResponse{Authenticated: true})
}

// handleLogout drops the held tokens.
// DELETE /session
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.session.SignOut()
	w.WriteHeader(http.StatusNoContent)
}
