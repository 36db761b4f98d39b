package server

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"parking-system/internal/logging"
)

type httpMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

func newHTTPMetrics(reg prometheus.Registerer) *httpMetrics {
	m := &httpMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "HTTP requests currently being served.",
		}),
	}
	reg.MustRegister(m.requests, m.duration, m.inFlight)
	return m
}

// spotCollector reads the spot table on every scrape.
type spotCollector struct {
	store Store
	desc  *prometheus.Desc
}

func newSpotCollector(store Store) *spotCollector {
	return &spotCollector{
		store: store,
		desc: prometheus.NewDesc(
			"parking_spots",
			"Parking spots by vehicle type and availability.",
			[]string{"vehicle_type", "state"}, nil,
		),
	}
}

func (c *spotCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

func (c *spotCollector) Collect(ch chan<- prometheus.Metric) {
	ctx := context.Background()
	spots, err := c.store.ListSpots(ctx)
	if err != nil {
		logging.Warn(ctx).Err(err).Msg("unable to collect parking spot metrics")
		ch <- prometheus.NewInvalidMetric(c.desc, err)
		return
	}

	type key struct{ category, state string }
	counts := map[key]int{}
	for _, spot := range spots {
		state := "occupied"
		if spot.Available {
			state = "available"
		}
		counts[key{spot.Category.String(), state}]++
	}
	for k, n := range counts {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(n), k.category, k.state)
	}
}

func newRegistry(store Store) (*prometheus.Registry, *httpMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		newSpotCollector(store),
	)
	return reg, newHTTPMetrics(reg)
}
