// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package images

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/staranto/recipectl/internal/apperr"
)

// Metrics counts cache outcomes. A nil *Metrics records nothing.
type Metrics struct {
	Hits        prometheus.Counter
	Misses      prometheus.Counter
	FetchErrors *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them with reg, if non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "recipectl",
			Subsystem: "image_cache",
			Name:      "hits_total",
			Help:      "Image loads served from the disk cache.",
		}),
		Misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "recipectl",
			Subsystem: "image_cache",
			Name:      "misses_total",
			Help:      "Image loads that went to the network.",
		}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recipectl",
			Subsystem: "image",
			Name:      "fetch_errors_total",
			Help:      "Failed image fetches by error kind.",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.Hits, m.Misses, m.FetchErrors)
	}
	return m
}

func (m *Metrics) hit() {
	if m != nil {
		m.Hits.Inc()
	}
}

func (m *Metrics) miss() {
	if m != nil {
		m.Misses.Inc()
	}
}

func (m *Metrics) fetchError(k apperr.Kind) {
	if m != nil {
		m.FetchErrors.WithLabelValues(k.String()).Inc()
	}
}
