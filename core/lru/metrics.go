package lru

// Metrics receives cache events. Calls happen under the cache lock,
// so implementations must be cheap and must not call back into the cache.
type Metrics interface {
	Hit()
	Miss()
	Evict()
	Size(entries int, bytes int64)
}

// NoopMetrics discards all events. It is the default.
type NoopMetrics struct{}

func (NoopMetrics) Hit()            {}
func (NoopMetrics) Miss()           {}
func (NoopMetrics) Evict()          {}
func (NoopMetrics) Size(int, int64) {}

var _ Metrics = NoopMetrics{}
