package gateway

import (
	"net"
	"net/http"
	"time"

	"github.com/upb/planning-agent/config"
)

// NewHTTPClient builds the pooled HTTP client shared by every invocation.
// The transport keeps a bounded set of reusable connections to the single
// upstream gateway (10 total, 5 kept alive when idle) and negotiates HTTP/2
// when the upstream supports it. The pool is populated lazily on first use;
// cancelling a request's context aborts the in-flight wait and returns the
// connection to the pool.
func NewHTTPClient(cfg config.GatewayConfig) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxConnsPerHost:     cfg.MaxConns,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConns,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}
}
