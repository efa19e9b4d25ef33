package order

import (
	"context"
	"fmt"
	"log/slog"

	"bookworm-cart/internal/metrics"
	"bookworm-cart/internal/model"
)

// Cart is the part of cart.Store the submitter needs.
type Cart interface {
	Snapshot() model.CartState
	ClearCart()
}

// Submitter places orders and clears the cart once the backend accepts one.
type Submitter struct {
	creator Creator
	cart    Cart
	metrics *metrics.Recorder
	logger  *slog.Logger
}

// NewSubmitter creates a Submitter. rec may be nil.
func NewSubmitter(creator Creator, cart Cart, rec *metrics.Recorder, logger *slog.Logger) *Submitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Submitter{creator: creator, cart: cart, metrics: rec, logger: logger}
}

// Submit orders the current cart contents.
func (s *Submitter) Submit(ctx context.Context, credential string) (*model.OrderConfirmation, error) {
	return s.SubmitItems(ctx, credential, model.OrderItemsFromCart(s.cart.Snapshot().Lines))
}

// SubmitItems orders items, normally the Items of a passed reconciliation
// report. On success the cart is cleared; on failure it is left as is and
// the error is a *model.APIError carrying one shopper-facing message.
func (s *Submitter) SubmitItems(ctx context.Context, credential string, items []model.OrderItem) (*model.OrderConfirmation, error) {
	if len(items) == 0 {
		return nil, model.NewEmptyCartError()
	}
	if credential == "" {
		return nil, model.NewAuthRequiredError()
	}

	conf, err := s.creator.CreateOrder(ctx, credential, model.OrderRequest{Items: items})
	if err != nil {
		apiErr := TranslateError(err)
		result := metrics.OrderRejected
		if apiErr.Code == "NETWORK_ERROR" {
			result = metrics.OrderNetwork
		}
		s.metrics.ObserveOrder(result)
		s.logger.Warn("order submission failed",
			"items", len(items),
			"code", apiErr.Code,
			"error", err,
		)
		return nil, apiErr
	}
	if conf == nil {
		s.metrics.ObserveOrder(metrics.OrderRejected)
		return nil, model.NewInternalError(fmt.Errorf("order creator returned no confirmation"))
	}

	s.cart.ClearCart()
	s.metrics.ObserveOrder(metrics.OrderAccepted)
	s.logger.Info("order placed", "order_id", conf.OrderID, "items", len(items), "amount", conf.Amount.String())
	return conf, nil
}
