package prom

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/searchktools/fastserve/core/lru"
	"github.com/searchktools/fastserve/core/pools"
)

func TestAdapterWithCache(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, "fastserve", "cache", nil)

	c := lru.New(lru.Options{MaxSize: 2, Metrics: m})
	c.Put("a", "text/plain", []byte("1"))
	c.Put("b", "text/plain", []byte("22"))
	c.Put("c", "text/plain", []byte("333")) // evicts a
	c.Get("b")
	c.Get("a")

	if got := testutil.ToFloat64(m.hits); got != 1 {
		t.Errorf("Expected 1 hit, got %v", got)
	}
	if got := testutil.ToFloat64(m.misses); got != 1 {
		t.Errorf("Expected 1 miss, got %v", got)
	}
	if got := testutil.ToFloat64(m.evictions); got != 1 {
		t.Errorf("Expected 1 eviction, got %v", got)
	}
	if got := testutil.ToFloat64(m.entries); got != 2 {
		t.Errorf("Expected 2 entries, got %v", got)
	}
	if got := testutil.ToFloat64(m.bytes); got != 5 {
		t.Errorf("Expected 5 bytes, got %v", got)
	}
}

func TestCollector(t *testing.T) {
	sample := Sample{
		Stats:   pools.Stats{Requests: 3, GetRequests: 2, BytesSent: 120},
		Pending: 1,
		Running: 4,
		Routes:  2,

		Bottlenecks: 1,
	}
	c := NewCollector("fastserve", func() Sample { return sample })

	if n := testutil.CollectAndCount(c); n != 12 {
		t.Errorf("Expected 12 metrics, got %d", n)
	}

	expected := `
# HELP fastserve_server_bottlenecks Targets flagged as slow or failing
# TYPE fastserve_server_bottlenecks gauge
fastserve_server_bottlenecks 1
# HELP fastserve_server_requests_total Requests served
# TYPE fastserve_server_requests_total counter
fastserve_server_requests_total 3
# HELP fastserve_server_workers_running Live worker count
# TYPE fastserve_server_workers_running gauge
fastserve_server_workers_running 4
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"fastserve_server_bottlenecks", "fastserve_server_requests_total", "fastserve_server_workers_running")
	if err != nil {
		t.Errorf("Unexpected metrics: %v", err)
	}
}
