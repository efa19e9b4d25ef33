// Package transport builds the HTTP transports used to reach the Bookworm
// backend (catalog, orders, auth).
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

// Options configures upstream transports.
type Options struct {
	// Timeout bounds dialing and, for clients, the whole request.
	Timeout time.Duration

	// ChromeFingerprint presents Chrome's TLS fingerprint instead of Go's.
	// Some CDNs in front of the storefront backend throttle clients with
	// Go's distinctive JA3 fingerprint.
	ChromeFingerprint bool

	// MaxIdleConnsPerHost sizes the keep-alive pool. Checkout fans out one
	// catalog request per cart line, so the default of 2 is too small.
	MaxIdleConnsPerHost int
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.MaxIdleConnsPerHost <= 0 {
		o.MaxIdleConnsPerHost = 16
	}
	return o
}

// New returns a RoundTripper for opts.
func New(opts Options) http.RoundTripper {
	opts = opts.withDefaults()
	if opts.ChromeFingerprint {
		return newChromeTransport(opts)
	}

	dialer := &net.Dialer{Timeout: opts.Timeout, KeepAlive: 30 * time.Second}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   opts.MaxIdleConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   opts.Timeout,
		ExpectContinueTimeout: time.Second,
	}
}

// NewClient returns an http.Client using New(opts) with opts.Timeout as the
// overall request timeout.
func NewClient(opts Options) *http.Client {
	opts = opts.withDefaults()
	return &http.Client{
		Timeout:   opts.Timeout,
		Transport: New(opts),
	}
}

// newChromeTransport uses uTLS with HelloChrome_Auto, lets ALPN negotiate
// h2 or http/1.1, and frames HTTP/2 with x/net's http2.Transport.
func newChromeTransport(opts Options) http.RoundTripper {
	dialer := &net.Dialer{Timeout: opts.Timeout}

	h2 := &http2.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
			return dialChromeTLS(ctx, dialer, network, addr)
		},
	}

	h1 := &http.Transport{
		DialContext: dialer.DialContext,
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialChromeTLS(ctx, dialer, network, addr)
		},
		MaxIdleConnsPerHost: opts.MaxIdleConnsPerHost,
		ForceAttemptHTTP2:   false,
	}

	return &chromeTransport{h2: h2, h1: h1}
}

type chromeTransport struct {
	h2 *http2.Transport
	h1 *http.Transport
}

// RoundTrip tries HTTP/2 first for https URLs and falls back to HTTP/1.1.
// Plain http URLs go straight to HTTP/1.1.
func (t *chromeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return t.h1.RoundTrip(req)
	}
	resp, err := t.h2.RoundTrip(req)
	if err == nil {
		return resp, nil
	}
	// Only retry requests whose body can be replayed.
	if req.Body != nil && req.Body != http.NoBody {
		if req.GetBody == nil {
			return nil, err
		}
		body, bodyErr := req.GetBody()
		if bodyErr != nil {
			return nil, err
		}
		req = req.Clone(req.Context())
		req.Body = body
	}
	return t.h1.RoundTrip(req)
}

func dialChromeTLS(ctx context.Context, dialer *net.Dialer, network, addr string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	tlsConn := utls.UClient(conn, &utls.Config{ServerName: host}, utls.HelloChrome_Auto)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tls handshake: %w", err)
	}
	return tlsConn, nil
}
