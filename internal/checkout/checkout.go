// Package checkout runs the full checkout flow: reconcile the cart against
// the catalog, then submit it if nothing drifted.
package checkout

import (
	"context"
	"fmt"
	"log/slog"

	"bookworm-cart/internal/auth"
	"bookworm-cart/internal/model"
	"bookworm-cart/internal/reconcile"
)

// Reconciler runs one reconciliation pass.
type Reconciler interface {
	Reconcile(ctx context.Context) (*reconcile.Report, error)
}

// Submitter places an order for already-reconciled items.
type Submitter interface {
	SubmitItems(ctx context.Context, credential string, items []model.OrderItem) (*model.OrderConfirmation, error)
}

// Result is a settled checkout attempt. Exactly one of Confirmation and
// Messages is set.
type Result struct {
	Confirmation *model.OrderConfirmation
	// Messages lists what blocked the order, one entry per affected line.
	Messages []string
	Report   *reconcile.Report
}

// Placed reports whether an order was created.
func (r *Result) Placed() bool { return r.Confirmation != nil }

// Service wires the reconciler and submitter behind the auth gate.
type Service struct {
	reconciler Reconciler
	submitter  Submitter
	gate       auth.Gate
	logger     *slog.Logger
}

// New creates a checkout service.
func New(reconciler Reconciler, submitter Submitter, gate auth.Gate, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{reconciler: reconciler, submitter: submitter, gate: gate, logger: logger}
}

// Checkout runs a fresh reconciliation pass and, if it passes, submits the
// pass's items. A failed pass returns a Result with Messages and no error.
// Errors are *model.APIError values or wrap reconcile.ErrAbandoned.
func (s *Service) Checkout(ctx context.Context) (*Result, error) {
	report, err := s.reconciler.Reconcile(ctx)
	if err != nil {
		return nil, err
	}
	if !report.Passed {
		return &Result{Messages: report.Messages, Report: report}, nil
	}

	// The shopper may have walked away between the join and here.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", reconcile.ErrAbandoned, err)
	}

	credential := s.gate.CurrentCredential()
	if credential == "" {
		s.gate.RequestSignIn(ctx)
		return nil, model.NewAuthRequiredError()
	}

	conf, err := s.submitter.SubmitItems(ctx, credential, report.Items)
	if err != nil {
		return nil, err
	}
	s.logger.Info("checkout complete", "order_id", conf.OrderID)
	return &Result{Confirmation: conf, Report: report}, nil
}
