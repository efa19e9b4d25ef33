package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"bookworm-cart/internal/auth"
	"bookworm-cart/internal/catalog"
	"bookworm-cart/internal/metrics"
	"bookworm-cart/internal/model"
)

// ErrAbandoned is returned when the caller's context ends before the pass
// settles. Nothing is applied to the cart.
var ErrAbandoned = errors.New("reconciliation abandoned")

// DefaultLookupTimeout bounds each catalog lookup when Config.LookupTimeout
// is unset.
const DefaultLookupTimeout = 5 * time.Second

// Cart is the part of cart.Store the reconciler needs.
type Cart interface {
	Snapshot() model.CartState
	RemoveItem(id model.ItemID)
}

// Config wires a Reconciler.
type Config struct {
	Lookup catalog.Lookup
	Gate   auth.Gate
	Cart   Cart

	// MaxConcurrency caps in-flight lookups. Zero issues every lookup at once.
	MaxConcurrency int
	LookupTimeout  time.Duration

	Metrics *metrics.Recorder
	Logger  *slog.Logger
}

// Reconciler runs reconciliation passes.
type Reconciler struct {
	lookup         catalog.Lookup
	gate           auth.Gate
	cart           Cart
	maxConcurrency int
	lookupTimeout  time.Duration
	metrics        *metrics.Recorder
	logger         *slog.Logger
}

// Report is the result of a settled pass.
type Report struct {
	Passed bool
	// Outcomes holds one entry per snapshot line, in cart order.
	Outcomes []Outcome
	// Messages holds one message per non-Unchanged line, in cart order.
	Messages []string
	// Items is the order payload for a passed pass.
	Items []model.OrderItem
	// Removed lists lines deleted from the live cart.
	Removed []model.ItemID
}

// New creates a Reconciler.
func New(cfg Config) (*Reconciler, error) {
	if cfg.Lookup == nil {
		return nil, fmt.Errorf("catalog lookup is required")
	}
	if cfg.Gate == nil {
		return nil, fmt.Errorf("auth gate is required")
	}
	if cfg.Cart == nil {
		return nil, fmt.Errorf("cart is required")
	}
	if cfg.MaxConcurrency < 0 {
		return nil, fmt.Errorf("max concurrency must not be negative")
	}
	timeout := cfg.LookupTimeout
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		lookup:         cfg.Lookup,
		gate:           cfg.Gate,
		cart:           cfg.Cart,
		maxConcurrency: cfg.MaxConcurrency,
		lookupTimeout:  timeout,
		metrics:        cfg.Metrics,
		logger:         logger,
	}, nil
}

// Reconcile runs one pass over a snapshot of the cart.
//
// Errors are reserved for passes that never reached a verdict: a missing
// credential (model.ErrAuthRequired, sign-in requested), an empty cart
// (model.ErrEmptyCart), or abandonment via ctx (ErrAbandoned). A failed
// verdict is a Report with Passed false.
//
// Lookups ignore ctx cancellation and run until they settle or hit the
// lookup timeout. If ctx ends first, Reconcile returns ErrAbandoned at once
// and the eventual results are dropped.
func (r *Reconciler) Reconcile(ctx context.Context) (*Report, error) {
	if !r.gate.IsAuthenticated() {
		r.gate.RequestSignIn(ctx)
		r.metrics.ObservePass(metrics.PassAuthRequired)
		return nil, model.NewAuthRequiredError()
	}

	snap := r.cart.Snapshot()
	if snap.IsEmpty() {
		r.metrics.ObservePass(metrics.PassEmptyCart)
		return nil, model.NewEmptyCartError()
	}

	done := make(chan []Outcome, 1)
	go func() { done <- r.fanOut(context.WithoutCancel(ctx), snap.Lines) }()

	var outcomes []Outcome
	select {
	case outcomes = <-done:
	case <-ctx.Done():
	}
	// Re-check after the join: a cancellation racing the last lookup still
	// counts as abandonment.
	if err := ctx.Err(); err != nil {
		r.metrics.ObservePass(metrics.PassAbandoned)
		r.logger.Info("reconciliation abandoned", "lines", len(snap.Lines))
		return nil, fmt.Errorf("%w: %w", ErrAbandoned, context.Cause(ctx))
	}

	return r.apply(snap, outcomes), nil
}

// fanOut issues one lookup per line and waits for all of them. The returned
// slice is indexed like lines.
func (r *Reconciler) fanOut(ctx context.Context, lines []model.CartLine) []Outcome {
	outcomes := make([]Outcome, len(lines))

	var g errgroup.Group
	if r.maxConcurrency > 0 {
		g.SetLimit(r.maxConcurrency)
	}
	for i, line := range lines {
		g.Go(func() error {
			res := r.lookupOne(ctx, line.ID)
			outcomes[i] = Classify(line, res)
			r.metrics.ObserveOutcome(outcomes[i].Kind.String())
			return nil
		})
	}
	_ = g.Wait() // lookups never return errors; failures are tagged results

	return outcomes
}

// lookupOne bounds a single lookup and converts a panic into Failed so one
// bad line cannot take down the join.
func (r *Reconciler) lookupOne(ctx context.Context, id model.ItemID) (res catalog.Result) {
	ctx, cancel := context.WithTimeout(ctx, r.lookupTimeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("catalog lookup panicked", "item_id", id, "panic", p)
			res = catalog.FailedResult(fmt.Errorf("lookup panicked: %v", p))
		}
		r.metrics.ObserveLookup(res.Status.String(), time.Since(start))
	}()

	return r.lookup.LookupItem(ctx, id)
}

// apply turns settled outcomes into a verdict and removes vanished lines
// from the live cart.
func (r *Reconciler) apply(snap model.CartState, outcomes []Outcome) *Report {
	report := &Report{Outcomes: outcomes, Passed: true}
	for _, o := range outcomes {
		if o.Kind == Unchanged {
			continue
		}
		report.Passed = false
		report.Messages = append(report.Messages, o.Message())
		if o.Kind == Removed {
			report.Removed = append(report.Removed, o.Line.ID)
		}
		if o.Kind == Unverifiable {
			r.logger.Warn("cart line could not be verified", "item_id", o.Line.ID, "error", o.Err)
		}
	}

	if report.Passed {
		report.Items = model.OrderItemsFromCart(snap.Lines)
		r.metrics.ObservePass(metrics.PassPassed)
		r.logger.Debug("reconciliation passed", "lines", len(outcomes))
		return report
	}

	for _, id := range report.Removed {
		r.cart.RemoveItem(id)
	}
	r.metrics.ObservePass(metrics.PassFailed)
	r.logger.Info("reconciliation failed",
		"lines", len(outcomes),
		"messages", len(report.Messages),
		"removed", len(report.Removed),
	)
	return report
}
