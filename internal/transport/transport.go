// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"
)

// Fetcher retrieves the raw bytes behind a URL. Implementations bound the call
// by timeout in addition to ctx.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, timeout time.Duration) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, rawURL string, timeout time.Duration) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, rawURL string, timeout time.Duration) ([]byte, error) {
	return f(ctx, rawURL, timeout)
}

// Kind classifies a transport failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidURL
	KindTimeout
	KindNetwork
	KindStatus
	KindNoData
	KindInvalidResponse
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindInvalidURL:
		return "invalid-url"
	case KindTimeout:
		return "timeout"
	case KindNetwork:
		return "network"
	case KindStatus:
		return "status"
	case KindNoData:
		return "no-data"
	case KindInvalidResponse:
		return "invalid-response"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Error is returned by every Fetcher in this package.
type Error struct {
	Kind       Kind
	StatusCode int
	URL        string
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("GET %s: HTTP error: %d", e.URL, e.StatusCode)
	case KindNoData:
		return fmt.Sprintf("GET %s: no data received", e.URL)
	}
	if e.Err != nil {
		return fmt.Sprintf("GET %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("GET %s: %s", e.URL, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err if it is (or wraps) an *Error.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindUnknown
}

// classify turns a client-side failure into an *Error.
func classify(rawURL string, err error) *Error {
	var te *Error
	if errors.As(err, &te) {
		return te
	}

	kind := KindNetwork
	var ne net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.As(err, &ne) && ne.Timeout():
		kind = KindTimeout
	case errors.Is(err, context.Canceled):
		kind = KindCanceled
	}
	return &Error{Kind: kind, URL: rawURL, Err: err}
}

func parseURL(rawURL string, schemes ...string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &Error{Kind: KindInvalidURL, URL: rawURL, Err: err}
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, &Error{Kind: KindInvalidURL, URL: rawURL, Err: errors.New("URL must be absolute")}
	}
	if len(schemes) == 0 {
		return u, nil
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return u, nil
		}
	}
	return nil, &Error{Kind: KindInvalidURL, URL: rawURL, Err: fmt.Errorf("unsupported scheme %q", u.Scheme)}
}
