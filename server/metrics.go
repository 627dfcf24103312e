package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type metrics struct {
	registry         *prometheus.Registry
	renderSeconds    prometheus.Histogram
	tileFeatures     prometheus.Histogram
	renderErrors     prometheus.Counter
	featuresIngested prometheus.Counter
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		renderSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ppetile",
			Name:      "tile_render_seconds",
			Help:      "Time to query and render one tile.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		tileFeatures: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ppetile",
			Name:      "tile_features",
			Help:      "Features drawn per tile.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 9),
		}),
		renderErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ppetile",
			Name:      "render_errors_total",
			Help:      "Tiles that failed to query or render.",
		}),
		featuresIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ppetile",
			Name:      "features_ingested_total",
			Help:      "Features accepted by the ingestion endpoint.",
		}),
	}
	m.registry.MustRegister(
		m.renderSeconds, m.tileFeatures, m.renderErrors, m.featuresIngested,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}
