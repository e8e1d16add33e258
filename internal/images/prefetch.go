// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package images

import (
	"context"
	"sync"

	"github.com/apex/log"
	"golang.org/x/sync/errgroup"

	"github.com/staranto/recipectl/internal/apperr"
)

// DefaultConcurrency is used by Prefetch when concurrency is not positive.
const DefaultConcurrency = 4

// PrefetchResult is the outcome for one URL.
type PrefetchResult struct {
	URL string
	Hit bool
	Err error
}

// PrefetchReport summarizes a Prefetch call. Results are in input order with
// duplicates and blank URLs removed.
type PrefetchReport struct {
	Hits    int
	Fetched int
	Failed  int
	Results []PrefetchResult
}

// Prefetch loads urls with at most concurrency loads in flight so later
// loads are cache hits. A failure for one URL does not stop the others.
func (m *Manager) Prefetch(ctx context.Context, urls []string, concurrency int) PrefetchReport {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	seen := make(map[string]struct{}, len(urls))
	results := make([]PrefetchResult, 0, len(urls))
	for _, u := range urls {
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		results = append(results, PrefetchResult{URL: u})
	}

	var (
		g  errgroup.Group
		mu sync.Mutex
		r  PrefetchReport
	)
	g.SetLimit(concurrency)

	for i := range results {
		g.Go(func() error {
			res := &results[i]
			if err := ctx.Err(); err != nil {
				res.Err = apperr.FromTransport(err)
			} else {
				img, err := m.Get(ctx, res.URL)
				res.Hit = img.Hit
				res.Err = err
			}

			mu.Lock()
			defer mu.Unlock()
			switch {
			case res.Err != nil:
				r.Failed++
				log.WithError(res.Err).Debugf("prefetch failed: %s", res.URL)
			case res.Hit:
				r.Hits++
			default:
				r.Fetched++
			}
			return nil
		})
	}
	_ = g.Wait()

	r.Results = results
	return r
}
