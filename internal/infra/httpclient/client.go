package httpclient

import (
	"net"
	"net/http"
	"time"

	"github.com/reelforge/server/internal/shared/config"
)

// New creates an HTTP client with the given transport configuration and
// overall response timeout. Every outbound call in the system goes
// through a client built here, so no network call can block forever.
func New(cfg config.HTTPClientConfig, timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.DialTimeout,
			KeepAlive: cfg.KeepAlive,
		}).DialContext,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		TLSHandshakeTimeout: cfg.TLSHandshakeTimeout,
		ForceAttemptHTTP2:   true,
	}

	if timeout <= 0 {
		timeout = cfg.ResponseTimeout
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}
