// Bookworm storefront cart service. Holds the shopper's cart, persists it
// across restarts, and re-verifies it against the catalog before ordering.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookworm-cart/internal/auth"
	"bookworm-cart/internal/cart"
	"bookworm-cart/internal/catalog"
	"bookworm-cart/internal/checkout"
	"bookworm-cart/internal/config"
	"bookworm-cart/internal/handler"
	"bookworm-cart/internal/metrics"
	"bookworm-cart/internal/middleware"
	"bookworm-cart/internal/order"
	"bookworm-cart/internal/persist"
	"bookworm-cart/internal/reconcile"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	ctx := context.Background()
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Initialize structured logger
	logger := initLogger(cfg.LogLevel, cfg.Environment)

	logger.Info("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.String("backend_url", cfg.Backend.URL),
		slog.String("storage_driver", cfg.Storage.Driver),
		slog.Bool("chrome_tls", cfg.Backend.ChromeFingerprint),
	)

	// Restore the cart before serving anything
	backend, err := persist.Open(ctx, cfg.StorageOptions())
	if err != nil {
		return fmt.Errorf("opening cart storage: %w", err)
	}
	defer backend.Close()

	store := persist.NewAdapter(backend, logger, persist.WithKey(cfg.Storage.Key))
	cartStore := cart.NewStore(store.Load(ctx), store, logger)
	logger.Info("cart restored", slog.Int("lines", len(cartStore.Snapshot().Lines)))

	rec := metrics.New()

	gate, err := newGate(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("creating auth gate: %w", err)
	}

	lookupTimeout := cfg.Reconcile.LookupTimeout.Std()
	catalogClient, err := catalog.New(catalog.Config{
		BaseURL:           cfg.Backend.CatalogURL,
		Timeout:           lookupTimeout,
		ChromeFingerprint: cfg.Backend.ChromeFingerprint,
		Logger:            logger,
	})
	if err != nil {
		return fmt.Errorf("creating catalog client: %w", err)
	}

	reconciler, err := reconcile.New(reconcile.Config{
		Lookup:         catalogClient,
		Gate:           gate,
		Cart:           cartStore,
		MaxConcurrency: cfg.Reconcile.MaxConcurrency,
		LookupTimeout:  lookupTimeout,
		Metrics:        rec,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("creating reconciler: %w", err)
	}

	creator, err := order.NewHTTPCreator(order.Config{
		BaseURL:           cfg.Backend.OrdersURL,
		Timeout:           cfg.Backend.Timeout.Std(),
		ChromeFingerprint: cfg.Backend.ChromeFingerprint,
	})
	if err != nil {
		return fmt.Errorf("creating order client: %w", err)
	}
	submitter := order.NewSubmitter(creator, cartStore, rec, logger)

	h := handler.New(handler.Deps{
		Cart:     cartStore,
		Catalog:  catalogClient,
		Checkout: checkout.New(reconciler, submitter, gate, logger),
		Session:  gate,
		Metrics:  rec,
		Logger:   logger,
	})

	// Setup routes
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	// Apply middleware chain: recovery → request id → logging → handler
	// Recovery must be outermost to catch panics from logging middleware
	httpHandler := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logging(logger),
	)(mux)

	// Create HTTP server with timeouts
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Channel for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Channel for server errors
	serverErr := make(chan error, 1)

	// Start server in goroutine
	go func() {
		logger.Info("server starting",
			slog.String("port", cfg.Port),
			slog.String("addr", server.Addr),
		)
		serverErr <- server.ListenAndServe()
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErr:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-shutdown:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// Give outstanding requests time to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			// Force close if graceful shutdown fails
			server.Close()
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	logger.Info("server stopped")
	return nil
}

// newGate builds the auth gate and signs in with whatever credentials the
// configuration carries: a token pair first, then email and password. A
// failed startup sign-in is logged, not fatal; the shopper can sign in later.
// When a checkout finds no usable token, the gate refreshes in the
// background so the retry can go through without an interactive sign-in.
func newGate(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*auth.TokenGate, error) {
	client, err := auth.NewClient(auth.ClientConfig{
		BaseURL:           cfg.Backend.AuthURL,
		Timeout:           cfg.Backend.Timeout.Std(),
		ChromeFingerprint: cfg.Backend.ChromeFingerprint,
	})
	if err != nil {
		return nil, err
	}

	timeout := cfg.Backend.Timeout.Std()
	var gate *auth.TokenGate
	gate = auth.NewTokenGate(logger,
		auth.WithClient(client),
		auth.WithSignIn(func(ctx context.Context) {
			if gate.Tokens().RefreshToken == "" {
				return
			}
			refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
			go func() {
				defer cancel()
				if err := gate.Refresh(refreshCtx); err != nil {
					logger.Warn("token refresh failed", slog.String("error", err.Error()))
				}
			}()
		}),
	)

	creds := cfg.Credentials
	switch {
	case creds.AccessToken != "" || creds.RefreshToken != "":
		gate.SetTokens(auth.Tokens{
			AccessToken:  creds.AccessToken,
			RefreshToken: creds.RefreshToken,
			TokenType:    "bearer",
		})
	case creds.Email != "" && creds.Password != "":
		loginCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := gate.Login(loginCtx, creds.Email, creds.Password); err != nil {
			logger.Warn("startup sign-in failed", slog.String("error", err.Error()))
		}
	}
	return gate, nil
}

// initLogger creates a structured logger configured for the environment.
// Production uses JSON format for GCP Cloud Logging compatibility.
// Development uses text format for readability.
func initLogger(levelName, environment string) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelName)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
		// Add source location in debug mode
		AddSource: level == slog.LevelDebug,
	}

	// JSON for production (Cloud Logging compatible), text for development
	if environment == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
