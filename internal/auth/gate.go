// Package auth holds the signed-in user's credential and tells the checkout
// flow whether one is present and usable.
package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Gate answers whether checkout may proceed and supplies the credential.
type Gate interface {
	IsAuthenticated() bool
	// CurrentCredential returns the bearer token, or "" when signed out.
	CurrentCredential() string
	// RequestSignIn surfaces a sign-in prompt to the user. It does not block
	// until sign-in completes.
	RequestSignIn(ctx context.Context)
}

// Tokens is the credential pair issued by the backend.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// SignInFunc is invoked by RequestSignIn.
type SignInFunc func(ctx context.Context)

// TokenGate is a Gate backed by an in-memory token pair.
type TokenGate struct {
	mu     sync.RWMutex
	tokens Tokens

	client   *Client
	onSignIn SignInFunc
	pending  bool
	now      func() time.Time
	logger   *slog.Logger
}

// GateOption configures a TokenGate.
type GateOption func(*TokenGate)

// WithSignIn sets the hook run by RequestSignIn.
func WithSignIn(fn SignInFunc) GateOption {
	return func(g *TokenGate) { g.onSignIn = fn }
}

// WithClient enables Login and Refresh against the backend.
func WithClient(c *Client) GateOption {
	return func(g *TokenGate) { g.client = c }
}

// WithClock overrides time.Now for expiry checks.
func WithClock(now func() time.Time) GateOption {
	return func(g *TokenGate) { g.now = now }
}

// NewTokenGate creates a signed-out gate.
func NewTokenGate(logger *slog.Logger, opts ...GateOption) *TokenGate {
	if logger == nil {
		logger = slog.Default()
	}
	g := &TokenGate{now: time.Now, logger: logger}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// IsAuthenticated reports whether an unexpired access token is held.
func (g *TokenGate) IsAuthenticated() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.usableLocked()
}

// CurrentCredential returns the access token if it is still usable.
func (g *TokenGate) CurrentCredential() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.usableLocked() {
		return ""
	}
	return g.tokens.AccessToken
}

// RequestSignIn marks a sign-in as pending and runs the hook.
func (g *TokenGate) RequestSignIn(ctx context.Context) {
	g.mu.Lock()
	g.pending = true
	hook := g.onSignIn
	g.mu.Unlock()

	g.logger.Info("sign-in requested")
	if hook != nil {
		hook(ctx)
	}
}

// SignInPending reports whether RequestSignIn was called since the last
// successful sign-in.
func (g *TokenGate) SignInPending() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.pending
}

// SetTokens installs a token pair, e.g. one seeded from configuration.
func (g *TokenGate) SetTokens(t Tokens) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tokens = t
	if t.AccessToken != "" {
		g.pending = false
	}
}

// Tokens returns the held token pair.
func (g *TokenGate) Tokens() Tokens {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.tokens
}

// SignOut drops both tokens.
func (g *TokenGate) SignOut() {
	g.mu.Lock()
	g.tokens = Tokens{}
	g.mu.Unlock()
	g.logger.Info("signed out")
}

// Login exchanges credentials for a token pair and installs it.
func (g *TokenGate) Login(ctx context.Context, email, password string) error {
	if g.client == nil {
		return errNoClient
	}
	t, err := g.client.Login(ctx, email, password)
	if err != nil {
		return err
	}
	g.SetTokens(*t)
	g.logger.Info("signed in")
	return nil
}

// Refresh exchanges the held refresh token for a new access token.
func (g *TokenGate) Refresh(ctx context.Context) error {
	if g.client == nil {
		return errNoClient
	}
	refresh := g.Tokens().RefreshToken
	if refresh == "" {
		return errNoRefreshToken
	}
	t, err := g.client.Refresh(ctx, refresh)
	if err != nil {
		return err
	}
	if t.RefreshToken == "" {
		t.RefreshToken = refresh
	}
	g.SetTokens(*t)
	g.logger.Debug("access token refreshed")
	return nil
}

func (g *TokenGate) usableLocked() bool {
	if g.tokens.AccessToken == "" {
		return false
	}
	return !expired(g.tokens.AccessToken, g.now())
}

// expired reads the exp claim without verifying the signature; only the
// backend can verify it. Tokens that are not JWTs carry no expiry here.
func expired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	return !claims.VerifyExpiresAt(now.Unix(), false)
}
