package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/searchktools/fastserve/core/pools"
)

// Sample is one reading of the server state
type Sample struct {
	Stats   pools.Stats // merged worker counters
	Pending int         // connections waiting in queue shards
	Running int         // live workers
	Routes  int

	Bottlenecks int // targets flagged by the last monitor analysis
}

// Collector reads a Sample on every scrape. Worker counters are merged
// when workers exit, so traffic totals settle at shutdown.
type Collector struct {
	read func() Sample

	requests    *prometheus.Desc
	getRequests *prometheus.Desc
	bytesSent   *prometheus.Desc
	bytesRecv   *prometheus.Desc
	cacheHits   *prometheus.Desc
	cacheMisses *prometheus.Desc
	errors      *prometheus.Desc
	notFound    *prometheus.Desc
	pending     *prometheus.Desc
	running     *prometheus.Desc
	routes      *prometheus.Desc
	bottlenecks *prometheus.Desc
}

// NewCollector creates a collector under namespace ns
func NewCollector(ns string, read func() Sample) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(ns, "server", name), help, nil, nil)
	}
	return &Collector{
		read:        read,
		requests:    desc("requests_total", "Requests served"),
		getRequests: desc("get_requests_total", "GET requests served"),
		bytesSent:   desc("sent_bytes_total", "Response bytes written"),
		bytesRecv:   desc("received_bytes_total", "Request bytes read"),
		cacheHits:   desc("cache_hits_total", "Static responses served from cache"),
		cacheMisses: desc("cache_misses_total", "Static responses loaded from disk"),
		errors:      desc("errors_total", "Connections closed on receive or parse failure"),
		notFound:    desc("not_found_total", "404 responses"),
		pending:     desc("queue_pending", "Connections waiting in queue shards"),
		running:     desc("workers_running", "Live worker count"),
		routes:      desc("routes", "Registered routes"),
		bottlenecks: desc("bottlenecks", "Targets flagged as slow or failing"),
	}
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.requests
	ch <- c.getRequests
	ch <- c.bytesSent
	ch <- c.bytesRecv
	ch <- c.cacheHits
	ch <- c.cacheMisses
	ch <- c.errors
	ch <- c.notFound
	ch <- c.pending
	ch <- c.running
	ch <- c.routes
	ch <- c.bottlenecks
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.read()
	counter := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}
	gauge := func(d *prometheus.Desc, v int) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, float64(v))
	}

	counter(c.requests, s.Stats.Requests)
	counter(c.getRequests, s.Stats.GetRequests)
	counter(c.bytesSent, s.Stats.BytesSent)
	counter(c.bytesRecv, s.Stats.BytesRecv)
	counter(c.cacheHits, s.Stats.CacheHits)
	counter(c.cacheMisses, s.Stats.CacheMisses)
	counter(c.errors, s.Stats.Errors)
	counter(c.notFound, s.Stats.NotFound)
	gauge(c.pending, s.Pending)
	gauge(c.running, s.Running)
	gauge(c.routes, s.Routes)
	gauge(c.bottlenecks, s.Bottlenecks)
}

var _ prometheus.Collector = (*Collector)(nil)
