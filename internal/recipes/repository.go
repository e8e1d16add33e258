// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package recipes

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/apex/log"

	"github.com/staranto/recipectl/internal/apperr"
	"github.com/staranto/recipectl/internal/transport"
)

const baseURL = "https://d3jbb8n5wk0qxi.cloudfront.net/"

// Endpoints are the named recipe feeds.
var Endpoints = map[string]string{
	"all":       baseURL + "recipes.json",
	"malformed": baseURL + "recipes-malformed.json",
	"empty":     baseURL + "recipes-empty.json",
}

// EndpointNames returns the keys of Endpoints, sorted.
func EndpointNames() []string {
	names := make([]string, 0, len(Endpoints))
	for k := range Endpoints {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ResolveEndpoint maps a feed name to its URL. Anything that is not a name
// must be an absolute URL. Blank means "all".
func ResolveEndpoint(spec string) (string, error) {
	if spec == "" {
		spec = "all"
	}
	if u, ok := Endpoints[spec]; ok {
		return u, nil
	}
	u, err := url.Parse(spec)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("endpoint must be one of %v or an absolute URL: %q", EndpointNames(), spec)
	}
	return spec, nil
}

// Repository fetches and parses a recipe feed.
type Repository struct {
	fetcher  transport.Fetcher
	endpoint string
	timeout  time.Duration
}

// NewRepository resolves endpoint and binds it to fetcher. A non-positive
// timeout means transport.DefaultTimeout.
func NewRepository(fetcher transport.Fetcher, endpoint string, timeout time.Duration) (*Repository, error) {
	if fetcher == nil {
		return nil, errors.New("recipes: nil fetcher")
	}
	u, err := ResolveEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = transport.DefaultTimeout
	}
	return &Repository{fetcher: fetcher, endpoint: u, timeout: timeout}, nil
}

// Endpoint is the resolved feed URL.
func (r *Repository) Endpoint() string {
	return r.endpoint
}

// Fetch downloads and parses the feed. Errors are *apperr.Error.
func (r *Repository) Fetch(ctx context.Context) (Collection, error) {
	data, err := r.fetcher.Fetch(ctx, r.endpoint, r.timeout)
	if err != nil {
		switch transport.KindOf(err) {
		case transport.KindInvalidURL, transport.KindInvalidResponse:
			return nil, &apperr.Error{Kind: apperr.KindInvalidData, Detail: "Invalid API response", Err: err}
		}
		return nil, apperr.FromTransport(err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, err
	}
	log.Debugf("fetched %d recipes from %s", len(c), r.endpoint)
	return c, nil
}
