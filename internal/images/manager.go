// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package images

import (
	"context"
	"errors"
	"time"

	"github.com/apex/log"
	"golang.org/x/sync/singleflight"

	"github.com/staranto/recipectl/internal/apperr"
	"github.com/staranto/recipectl/internal/cacheutil"
	"github.com/staranto/recipectl/internal/transport"
)

// DefaultTimeout bounds the network fetch on a cache miss.
const DefaultTimeout = 30 * time.Second

// Manager combines the disk cache and a transport with cache-first semantics.
type Manager struct {
	cache   *cacheutil.Cache
	fetcher transport.Fetcher
	timeout time.Duration
	dedup   bool
	metrics *Metrics
	flights singleflight.Group
}

// Option configures a Manager.
type Option func(*Manager)

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithDedup makes concurrent misses for the same URL share one fetch.
func WithDedup() Option {
	return func(m *Manager) {
		m.dedup = true
	}
}

// WithMetrics records hits, misses and fetch errors in metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// NewManager builds a Manager over cache and fetcher.
func NewManager(cache *cacheutil.Cache, fetcher transport.Fetcher, opts ...Option) (*Manager, error) {
	if cache == nil {
		return nil, errors.New("images: nil cache")
	}
	if fetcher == nil {
		return nil, errors.New("images: nil fetcher")
	}

	m := &Manager{
		cache:   cache,
		fetcher: fetcher,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Image is the outcome of a successful Get.
type Image struct {
	Data []byte
	Hit  bool
}

// Load returns the bytes for url, from the cache when present and from the
// network otherwise. Errors are *apperr.Error.
func (m *Manager) Load(ctx context.Context, url string) ([]byte, error) {
	img, err := m.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	return img.Data, nil
}

// Get is Load that also reports whether the bytes came from the cache.
func (m *Manager) Get(ctx context.Context, url string) (Image, error) {
	if data, ok := m.cache.Read(url); ok {
		m.metrics.hit()
		return Image{Data: data, Hit: true}, nil
	}
	m.metrics.miss()

	if !m.dedup {
		data, err := m.fetch(ctx, url)
		if err != nil {
			return Image{}, err
		}
		return Image{Data: data}, nil
	}

	// The shared fetch must not die with whichever caller started it.
	ch := m.flights.DoChan(url, func() (any, error) {
		if data, ok := m.cache.Read(url); ok {
			return data, nil
		}
		return m.fetch(context.WithoutCancel(ctx), url)
	})

	select {
	case <-ctx.Done():
		return Image{}, apperr.FromTransport(ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return Image{}, res.Err
		}
		data := res.Val.([]byte)
		if res.Shared {
			data = append([]byte(nil), data...)
		}
		return Image{Data: data}, nil
	}
}

func (m *Manager) fetch(ctx context.Context, url string) ([]byte, error) {
	start := time.Now()
	data, err := m.fetcher.Fetch(ctx, url, m.timeout)
	if err != nil {
		ae := apperr.FromTransport(err)
		m.metrics.fetchError(ae.Kind)
		log.WithError(err).WithField("kind", ae.Kind).Debugf("fetch failed: %s", url)
		return nil, ae
	}

	log.WithField("bytes", len(data)).
		WithField("elapsed", time.Since(start).Round(time.Millisecond)).
		Debugf("fetched %s", url)

	// Detached from ctx; a dispatched write always completes.
	m.cache.Write(url, data)
	return data, nil
}

// IsCached reports whether url has a cache entry. It never fetches.
func (m *Manager) IsCached(url string) bool {
	return m.cache.Contains(url)
}

// ClearCache empties the cache in the background. IsCached may keep
// reporting true briefly afterwards.
func (m *Manager) ClearCache() {
	m.cache.ClearAll()
}

// Wait blocks until background cache writes and clears have finished.
func (m *Manager) Wait() {
	m.cache.Wait()
}

// Cache exposes the underlying cache for stats and key lookups.
func (m *Manager) Cache() *cacheutil.Cache {
	return m.cache
}
