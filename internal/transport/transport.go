package transport

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/FranksOps/sift/internal/metrics"
	"github.com/FranksOps/sift/pkg/proxy"
	utls "github.com/refraction-networking/utls"
)

// Profile represents a recognized TLS fingerprint profile. Public instances
// behind bot walls sometimes reject the stock Go ClientHello; pointing the
// client at a browser profile gets those requests through.
type Profile string

const (
	ProfileChrome  Profile = "chrome"
	ProfileFirefox Profile = "firefox"
	ProfileSafari  Profile = "safari"
	ProfileGo      Profile = "go"     // standard go TLS
	ProfileRandom  Profile = "random" // randomized uTLS profile
)

type contextKey string

const proxyKey contextKey = "proxy_url"

// WithProxy returns a context that routes the request carrying it through
// the given proxy. Used for per-request rotation from a proxy.Pool without
// rebuilding the transport.
func WithProxy(ctx context.Context, proxyURL *url.URL) context.Context {
	return context.WithValue(ctx, proxyKey, proxyURL)
}

// Config tunes the shared transport. Zero values fall back to the pooling
// defaults the client was designed around: connections are long-lived
// (search operations reuse them across pages) and generously pooled.
type Config struct {
	Profile Profile
	// Pool supplies one proxy per request, with request outcomes fed
	// back to its health tracking. Optional.
	Pool *proxy.Pool
	// KeepAlive for the TCP dialer. Defaults to an hour.
	KeepAlive time.Duration
	// MaxIdlePerHost bounds pooled idle connections per instance host.
	// Defaults to 100.
	MaxIdlePerHost int
}

// New returns an http.RoundTripper configured with the requested TLS
// fingerprint profile and pool tuning. If the profile is "go", the base is
// a tuned standard http.Transport; otherwise the transport dials TLS
// through utls.UClient. When cfg.Pool is set the result additionally
// rotates proxies per request and feeds outcomes back to the pool.
func New(cfg Config) (http.RoundTripper, error) {
	if cfg.Profile == "" {
		cfg.Profile = ProfileGo
	}
	if cfg.KeepAlive == 0 {
		cfg.KeepAlive = time.Hour
	}
	if cfg.MaxIdlePerHost == 0 {
		cfg.MaxIdlePerHost = 100
	}

	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConnsPerHost = cfg.MaxIdlePerHost
	if t.MaxIdleConns < cfg.MaxIdlePerHost {
		t.MaxIdleConns = cfg.MaxIdlePerHost
	}
	t.DialContext = (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: cfg.KeepAlive,
	}).DialContext
	t.Proxy = proxyFunc()

	if cfg.Profile == ProfileGo {
		return withPool(t, cfg.Pool), nil
	}

	var clientHelloID utls.ClientHelloID
	switch cfg.Profile {
	case ProfileChrome:
		clientHelloID = utls.HelloChrome_Auto
	case ProfileFirefox:
		clientHelloID = utls.HelloFirefox_Auto
	case ProfileSafari:
		clientHelloID = utls.HelloIOS_Auto
	case ProfileRandom:
		clientHelloID = utls.HelloRandomizedALPN
	default:
		return nil, fmt.Errorf("context: unknown profile %q", cfg.Profile)
	}

	// Wrap the plain TCP dial with a uTLS handshake carrying the chosen
	// ClientHello.
	t.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		tcpConn, err := t.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr // fallback if no port
		}

		uConn := utls.UClient(tcpConn, &utls.Config{ServerName: host}, clientHelloID)
		if err := uConn.HandshakeContext(ctx); err != nil {
			_ = tcpConn.Close()
			return nil, fmt.Errorf("context: utls handshake failed: %w", err)
		}

		return uConn, nil
	}

	return withPool(t, cfg.Pool), nil
}

// withPool wraps the transport in a healthTracker when a pool is
// configured, so every request outcome reaches the pool's bookkeeping.
func withPool(t *http.Transport, pool *proxy.Pool) http.RoundTripper {
	if pool == nil {
		return t
	}
	return &healthTracker{base: t, pool: pool}
}

// healthTracker routes each request through the pool's next healthy proxy
// and reports the outcome back. Without the feedback a proxy's failure
// count never moves and a dead proxy keeps being selected.
type healthTracker struct {
	base http.RoundTripper
	pool *proxy.Pool
}

var _ http.RoundTripper = (*healthTracker)(nil)

func (h *healthTracker) RoundTrip(req *http.Request) (*http.Response, error) {
	// An explicit WithProxy value wins; that caller owns the bookkeeping.
	if req.Context().Value(proxyKey) != nil {
		return h.base.RoundTrip(req)
	}

	active := h.pool.Next()
	if active == nil {
		// Empty pool or every proxy cooling down: connect directly.
		return h.base.RoundTrip(req)
	}

	resp, err := h.base.RoundTrip(req.WithContext(WithProxy(req.Context(), active)))
	if err != nil {
		_ = h.pool.MarkFailure(active)
		metrics.ProxyFailuresTotal.WithLabelValues(active.String()).Inc()
		return nil, err
	}
	_ = h.pool.MarkSuccess(active)
	return resp, nil
}

// proxyFunc resolves the proxy for one request: an explicit WithProxy value
// wins, then the process environment. Pool rotation happens a level up, in
// healthTracker, where the outcome can be reported back.
func proxyFunc() func(*http.Request) (*url.URL, error) {
	return func(req *http.Request) (*url.URL, error) {
		if val := req.Context().Value(proxyKey); val != nil {
			if u, ok := val.(*url.URL); ok {
				return u, nil
			}
		}
		// Local test targets must not be routed through a system proxy.
		if req.URL.Hostname() == "127.0.0.1" || req.URL.Hostname() == "localhost" {
			return nil, nil
		}
		return http.ProxyFromEnvironment(req)
	}
}
