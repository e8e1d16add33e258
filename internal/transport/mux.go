// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Mux routes a fetch to the Fetcher registered for the URL's scheme.
type Mux map[string]Fetcher

func (m Mux) Fetch(ctx context.Context, rawURL string, timeout time.Duration) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &Error{Kind: KindInvalidURL, URL: rawURL, Err: err}
	}
	f, ok := m[strings.ToLower(u.Scheme)]
	if !ok {
		return nil, &Error{Kind: KindInvalidURL, URL: rawURL, Err: fmt.Errorf("unsupported scheme %q", u.Scheme)}
	}
	return f.Fetch(ctx, rawURL, timeout)
}
