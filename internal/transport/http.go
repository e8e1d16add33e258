// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/apex/log"
)

const (
	// DefaultTimeout bounds a single fetch when the caller passes zero.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBytes caps a response body.
	DefaultMaxBytes int64 = 32 << 20

	userAgent = "recipectl"
)

// ClientConfig holds configuration options for creating HTTP clients
type ClientConfig struct {
	// MaxIdleConnsPerHost controls the maximum idle (keep-alive) connections to keep per-host
	MaxIdleConnsPerHost int

	// IdleConnTimeout is the maximum amount of time an idle connection will remain idle before closing itself
	IdleConnTimeout time.Duration

	// Timeout is the client-wide ceiling. Per-fetch timeouts are applied on top.
	Timeout time.Duration

	DialTimeout         time.Duration
	TLSHandshakeTimeout time.Duration

	// ResponseHeaderTimeout specifies the amount of time to wait for a server's response headers
	ResponseHeaderTimeout time.Duration
}

// getEnvDuration reads a duration from an environment variable, returning the
// default if not set or invalid. Accepts plain integers (seconds) or Go
// duration strings.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	log.Warnf("ignoring invalid duration %s=%q", key, val)
	return defaultVal
}

// DefaultConfig returns a ClientConfig suited to fetching images from a CDN.
// Overridable via environment variables (seconds, or Go duration format):
//   - RECIPECTL_HTTP_TIMEOUT: overall client ceiling (default: 120)
//   - RECIPECTL_HTTP_RESPONSE_HEADER_TIMEOUT: wait for response headers (default: 30)
func DefaultConfig() ClientConfig {
	return ClientConfig{
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		Timeout:               getEnvDuration("RECIPECTL_HTTP_TIMEOUT", 120*time.Second),
		DialTimeout:           10 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: getEnvDuration("RECIPECTL_HTTP_RESPONSE_HEADER_TIMEOUT", 30*time.Second),
	}
}

// NewHTTPClient creates a new HTTP client with the provided configuration.
// If config is nil, DefaultConfig() is used.
func NewHTTPClient(config *ClientConfig) *http.Client {
	if config == nil {
		cfg := DefaultConfig()
		config = &cfg
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   config.DialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
		IdleConnTimeout:       config.IdleConnTimeout,
		TLSHandshakeTimeout:   config.TLSHandshakeTimeout,
		ResponseHeaderTimeout: config.ResponseHeaderTimeout,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   config.Timeout,
	}
}

// HTTPFetcher GETs http(s) URLs and returns the body of a 2xx response.
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

// HTTPOption configures an HTTPFetcher.
type HTTPOption func(*HTTPFetcher)

// WithMaxBytes caps the accepted body size.
func WithMaxBytes(n int64) HTTPOption {
	return func(f *HTTPFetcher) {
		f.maxBytes = n
	}
}

// NewHTTPFetcher wraps client. A nil client gets NewHTTPClient(nil).
func NewHTTPFetcher(client *http.Client, opts ...HTTPOption) *HTTPFetcher {
	if client == nil {
		client = NewHTTPClient(nil)
	}
	f := &HTTPFetcher{client: client, maxBytes: DefaultMaxBytes}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch performs the GET. A zero timeout means DefaultTimeout.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string, timeout time.Duration) ([]byte, error) {
	if _, err := parseURL(rawURL, "http", "https"); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{Kind: KindInvalidURL, URL: rawURL, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classify(rawURL, err)
	}
	defer resp.Body.Close()

	log.WithField("status", resp.StatusCode).
		WithField("elapsed", time.Since(start).Round(time.Millisecond)).
		Debugf("GET %s", rawURL)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, &Error{Kind: KindStatus, StatusCode: resp.StatusCode, URL: rawURL}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, classify(rawURL, fmt.Errorf("failed to read response: %w", err))
	}
	if int64(len(body)) > f.maxBytes {
		return nil, &Error{
			Kind: KindInvalidResponse,
			URL:  rawURL,
			Err:  fmt.Errorf("response exceeds %d bytes", f.maxBytes),
		}
	}
	if len(body) == 0 {
		return nil, &Error{Kind: KindNoData, StatusCode: resp.StatusCode, URL: rawURL}
	}

	return body, nil
}
