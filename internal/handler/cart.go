package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"bookworm-cart/internal/catalog"
	"bookworm-cart/internal/model"
)

// addItemRequest is the body of POST /cart/items. With only id (and
// quantity) set, the item's details are fetched from the catalog.
type addItemRequest struct {
	ID            model.ItemID `json:"id" jsonschema:"book id,required"`
	Quantity      int          `json:"quantity,omitempty" jsonschema:"units to add (default 1, capped at 8 per line)"`
	Title         string       `json:"title,omitempty" jsonschema:"title as shown to the shopper; omit to fetch from the catalog"`
	AuthorName    string       `json:"authorName,omitempty" jsonschema:"author name"`
	ImageURL      string       `json:"imageUrl,omitempty" jsonschema:"cover image URL"`
	UnitPrice     *model.Money `json:"unitPrice,omitempty" jsonschema:"list price in cents; required with title"`
	DiscountPrice *model.Money `json:"discountPrice,omitempty" jsonschema:"sale price in cents"`
}

// addItemResponse reports the new cart and how much of the request fit.
type addItemResponse struct {
	Cart  model.CartState `json:"cart"`
	Added addedQuantity   `json:"added"`
}

type addedQuantity struct {
	Requested int `json:"requested"`
	Applied   int `json:"applied"`
	Dropped   int `json:"dropped"`
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

// handleGetCart returns the current cart.
// GET /cart
func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.cart.Snapshot())
}

// handleAddItem adds units of a book to the cart.
// POST /cart/items
func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	resp, err := h.addItem(ctx, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// addItem is shared by REST and MCP.
func (h *Handler) addItem(ctx context.Context, req addItemRequest) (*addItemResponse, error) {
	candidate, err := h.resolveCandidate(ctx, req)
	if err != nil {
		return nil, err
	}

	res := h.cart.AddItem(candidate, req.Quantity)
	h.logger.InfoContext(ctx, "item added",
		slog.Int64("item_id", int64(candidate.ID)),
		slog.Int("requested", res.Requested),
		slog.Int("applied", res.Applied),
	)
	return &addItemResponse{
		Cart:  h.cart.Snapshot(),
		Added: addedQuantity{Requested: res.Requested, Applied: res.Applied, Dropped: res.Dropped},
	}, nil
}

// resolveCandidate validates a client-supplied candidate, or builds one from
// the catalog when the client sent only the id.
func (h *Handler) resolveCandidate(ctx context.Context, req addItemRequest) (model.LineCandidate, error) {
	if req.ID <= 0 {
		return model.LineCandidate{}, model.NewValidationError("id", "must be a positive integer")
	}

	if req.Title != "" {
		if req.UnitPrice == nil {
			return model.LineCandidate{}, model.NewValidationError("unitPrice", "required when title is given")
		}
		if err := validatePrice("unitPrice", *req.UnitPrice); err != nil {
			return model.LineCandidate{}, err
		}
		if req.DiscountPrice != nil {
			if err := validatePrice("discountPrice", *req.DiscountPrice); err != nil {
				return model.LineCandidate{}, err
			}
		}
		return model.LineCandidate{
			ID:            req.ID,
			Title:         req.Title,
			AuthorName:    req.AuthorName,
			ImageURL:      req.ImageURL,
			UnitPrice:     *req.UnitPrice,
			DiscountPrice: req.DiscountPrice,
		}, nil
	}

	if h.catalog == nil {
		return model.LineCandidate{}, model.NewValidationError("title", "required")
	}
	res := h.catalog.LookupItem(ctx, req.ID)
	switch res.Status {
	case catalog.Found:
		it := res.Item
		return model.LineCandidate{
			ID:            req.ID,
			Title:         it.Title,
			AuthorName:    it.AuthorName,
			ImageURL:      it.ImageURL,
			UnitPrice:     it.UnitPrice,
			DiscountPrice: it.DiscountPrice,
		}, nil
	case catalog.NotFound:
		return model.LineCandidate{}, model.NewNotFoundError("book")
	default:
		return model.LineCandidate{}, model.NewUpstreamError("catalog", res.Err)
	}
}

// handleUpdateQuantity sets a line's quantity; zero or less removes it.
// PUT /cart/items/{id}
func (h *Handler) handleUpdateQuantity(w http.ResponseWriter, r *http.Request) {
	id, err := pathItemID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req updateQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.Quantity == nil {
		h.writeError(w, model.NewValidationError("quantity", "required"))
		return
	}

	h.cart.UpdateQuantity(id, *req.Quantity)
	h.writeJSON(w, http.StatusOK, h.cart.Snapshot())
}

// handleRemoveItem deletes a line.
// DELETE /cart/items/{id}
func (h *Handler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathItemID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.cart.RemoveItem(id)
	h.writeJSON(w, http.StatusOK, h.cart.Snapshot())
}

// handleClearCart empties the cart.
// DELETE /cart
func (h *Handler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	h.cart.ClearCart()
	h.logger.InfoContext(r.Context(), "cart cleared")
	h.writeJSON(w, http.StatusOK, h.cart.Snapshot())
}

func validatePrice(field string, p model.Money) error {
	if p < 0 {
		return model.NewValidationError(field, "must not be negative")
	}
	if p > model.MaxPrice {
		return model.NewValidationError(field, "exceeds the maximum price")
	}
	return nil
}

func pathItemID(r *http.Request) (model.ItemID, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, model.NewValidationError("id", "must be a positive integer")
	}
	return model.ItemID(id), nil
}
