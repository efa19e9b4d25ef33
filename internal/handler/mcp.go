// MCP transport handler exposing the cart and checkout as tools, using the
// official MCP Go SDK.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"bookworm-cart/internal/model"
	"bookworm-cart/internal/reconcile"
)

// === MCP Tool Input/Output Types ===

// ViewCartInput is the input schema for view_cart.
type ViewCartInput struct{}

// UpdateQuantityInput is the input schema for update_quantity.
type UpdateQuantityInput struct {
	ID       model.ItemID `json:"id" jsonschema:"book id,required"`
	Quantity int          `json:"quantity" jsonschema:"new quantity; zero or less removes the line,required"`
}

// RemoveItemInput is the input schema for remove_from_cart.
type RemoveItemInput struct {
	ID model.ItemID `json:"id" jsonschema:"book id,required"`
}

// ClearCartInput is the input schema for clear_cart.
type ClearCartInput struct{}

// CheckoutInput is the input schema for checkout.
type CheckoutInput struct{}

// AddToCartOutput is the output schema for add_to_cart.
type AddToCartOutput struct {
	Cart      model.CartState `json:"cart"`
	Requested int             `json:"requested"`
	Applied   int             `json:"applied"`
	Dropped   int             `json:"dropped"`
}

// CheckoutOutput is the output schema for checkout. Order fields are zero
// when Passed is false.
type CheckoutOutput struct {
	Passed    bool                `json:"passed"`
	Messages  []string            `json:"messages"`
	OrderID   int64               `json:"orderId,omitempty"`
	OrderDate string              `json:"orderDate,omitempty"`
	Amount    model.Money         `json:"amount,omitempty"`
	Items     []model.OrderedItem `json:"items"`
	Cart      model.CartState     `json:"cart"`
}

// NewMCPServer creates an MCP server with cart tools registered.
// The server exposes the same operations as the REST API but via MCP protocol.
func (h *Handler) NewMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "bookworm-cart",
			Version: "1.0.0",
		},
		&mcp.ServerOptions{
			Instructions: "Bookworm cart - manage the shopper's cart and check out. " +
				"Checkout re-verifies every line against the catalog before ordering.",
		},
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "view_cart",
		Description: "Get the cart lines and totals.",
	}, h.mcpViewCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_to_cart",
		Description: "Add units of a book. Send only id to fetch details from the catalog. Each line holds at most 8 units; extra units are dropped.",
	}, h.mcpAddToCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_quantity",
		Description: "Set the quantity of a line already in the cart.",
	}, h.mcpUpdateQuantity)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "remove_from_cart",
		Description: "Remove a line from the cart.",
	}, h.mcpRemoveItem)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "clear_cart",
		Description: "Remove every line from the cart.",
	}, h.mcpClearCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "checkout",
		Description: "Verify the cart against the catalog and place the order. If anything changed, returns the reasons instead and no order is placed.",
	}, h.mcpCheckout)

	return server
}

// NewMCPHandler returns an HTTP handler for the MCP endpoint.
// Mount this at /mcp on your mux.
func (h *Handler) NewMCPHandler() http.Handler {
	server := h.NewMCPServer()
	return mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server { return server },
		nil,
	)
}

// === Tool Handlers ===

func (h *Handler) mcpViewCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ViewCartInput,
) (*mcp.CallToolResult, model.CartState, error) {
	return nil, h.cart.Snapshot(), nil
}

func (h *Handler) mcpAddToCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input addItemRequest,
) (*mcp.CallToolResult, AddToCartOutput, error) {
	resp, err := h.addItem(ctx, input)
	if err != nil {
		return nil, AddToCartOutput{}, h.mcpError(err)
	}
	return nil, AddToCartOutput{
		Cart:      resp.Cart,
		Requested: resp.Added.Requested,
		Applied:   resp.Added.Applied,
		Dropped:   resp.Added.Dropped,
	}, nil
}

func (h *Handler) mcpUpdateQuantity(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input UpdateQuantityInput,
) (*mcp.CallToolResult, model.CartState, error) {
	if input.ID <= 0 {
		return nil, model.CartState{}, h.mcpError(model.NewValidationError("id", "must be a positive integer"))
	}
	h.cart.UpdateQuantity(input.ID, input.Quantity)
	return nil, h.cart.Snapshot(), nil
}

func (h *Handler) mcpRemoveItem(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input RemoveItemInput,
) (*mcp.CallToolResult, model.CartState, error) {
	h.cart.RemoveItem(input.ID)
	return nil, h.cart.Snapshot(), nil
}

func (h *Handler) mcpClearCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ClearCartInput,
) (*mcp.CallToolResult, model.CartState, error) {
	h.cart.ClearCart()
	return nil, h.cart.Snapshot(), nil
}

func (h *Handler) mcpCheckout(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input CheckoutInput,
) (*mcp.CallToolResult, CheckoutOutput, error) {
	res, err := h.checkout.Checkout(ctx)
	if err != nil {
		return nil, CheckoutOutput{}, h.mcpError(err)
	}

	out := CheckoutOutput{
		Passed:   res.Placed(),
		Messages: res.Messages,
		Items:    []model.OrderedItem{},
		Cart:     h.cart.Snapshot(),
	}
	if out.Messages == nil {
		out.Messages = []string{}
	}
	if c := res.Confirmation; c != nil {
		out.OrderID = c.OrderID
		out.OrderDate = c.OrderDate.Format(time.RFC3339)
		out.Amount = c.Amount
		if c.Items != nil {
			out.Items = c.Items
		}
	}
	return nil, out, nil
}

// mcpError converts service errors to MCP-friendly errors.
func (h *Handler) mcpError(err error) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
	}
	if errors.Is(err, reconcile.ErrAbandoned) {
		return fmt.Errorf("checkout abandoned")
	}
	// Don't leak internal error details
	h.logger.Error("mcp internal error", slog.String("error", err.Error()))
	return fmt.Errorf("internal error")
}
