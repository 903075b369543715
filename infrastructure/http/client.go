// Package http builds the outbound HTTP clients used for oracle backends.
package http

import (
	"net"
	"net/http"
	"time"
)

// Defaults for outbound clients.
const (
	DefaultTimeout             = 30 * time.Second
	DefaultMaxIdleConnsPerHost = 10
	DefaultIdleConnTimeout     = 90 * time.Second
	defaultDialTimeout         = 5 * time.Second
	defaultTLSHandshakeTimeout = 10 * time.Second
)

// ClientConfig configures NewClient. Zero values use the package defaults.
type ClientConfig struct {
	Timeout             time.Duration
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

// NewClient returns an *http.Client with pooled keep-alive connections.
func NewClient(cfg ClientConfig) *http.Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxIdleConnsPerHost <= 0 {
		cfg.MaxIdleConnsPerHost = DefaultMaxIdleConnsPerHost
	}
	if cfg.IdleConnTimeout <= 0 {
		cfg.IdleConnTimeout = DefaultIdleConnTimeout
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: defaultDialTimeout}).DialContext,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		TLSHandshakeTimeout: defaultTLSHandshakeTimeout,
	}

	return &http.Client{Timeout: cfg.Timeout, Transport: transport}
}
