// Package observability times request dispatch per target and flags slow
// or failing targets.
package observability

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Thresholds for Analyze
const (
	SlowThreshold      = 100 * time.Millisecond
	ErrorRateThreshold = 0.05
)

// Monitor records request latency per dispatch target
// (a route path, "static" or "notfound")
type Monitor struct {
	enabled atomic.Bool
	targets sync.Map // string -> *TargetMetrics

	global struct {
		requests atomic.Uint64
		duration atomic.Uint64
	}

	bottlenecks  []Bottleneck
	bottleneckMu sync.RWMutex
	onDetect     func(Bottleneck)
}

// TargetMetrics stores per-target counters
type TargetMetrics struct {
	Name          string
	Count         atomic.Uint64
	Errors        atomic.Uint64
	TotalDuration atomic.Uint64
	MinDuration   atomic.Uint64
	MaxDuration   atomic.Uint64
	buckets       [len(bucketBounds) + 1]atomic.Uint64
}

// upper bounds of the latency histogram buckets
var bucketBounds = [...]time.Duration{
	time.Millisecond,
	5 * time.Millisecond,
	10 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	500 * time.Millisecond,
	time.Second,
	5 * time.Second,
}

// Bottleneck is a target flagged by Analyze
type Bottleneck struct {
	Type       string // "latency" or "errors"
	Target     string
	Severity   int
	DetectedAt time.Time
	Details    string
}

// TargetSummary is a point-in-time copy of one target's counters.
// Buckets[i] counts requests faster than BucketBounds()[i]; the last
// bucket holds everything slower.
type TargetSummary struct {
	Name    string
	Count   uint64
	Errors  uint64
	Avg     time.Duration
	Min     time.Duration
	Max     time.Duration
	Buckets []uint64
}

// BucketBounds returns the upper bounds of the latency histogram
func BucketBounds() []time.Duration {
	return append([]time.Duration(nil), bucketBounds[:]...)
}

// NewMonitor creates an enabled monitor
func NewMonitor() *Monitor {
	m := &Monitor{}
	m.enabled.Store(true)
	return m
}

// SetEnabled turns recording on or off
func (m *Monitor) SetEnabled(on bool) {
	m.enabled.Store(on)
}

// Record adds one request to target
func (m *Monitor) Record(target string, d time.Duration, isError bool) {
	if !m.enabled.Load() {
		return
	}

	val, _ := m.targets.LoadOrStore(target, &TargetMetrics{Name: target})
	tm := val.(*TargetMetrics)

	tm.Count.Add(1)
	if isError {
		tm.Errors.Add(1)
	}

	ns := uint64(d.Nanoseconds())
	tm.TotalDuration.Add(ns)
	updateMinMax(tm, ns)
	tm.buckets[bucketIndex(d)].Add(1)

	m.global.requests.Add(1)
	m.global.duration.Add(ns)
}

// Start returns a start time for Finish
func (m *Monitor) Start() time.Time {
	if !m.enabled.Load() {
		return time.Time{}
	}
	return time.Now()
}

// Finish records the time elapsed since start
func (m *Monitor) Finish(target string, start time.Time, isError bool) {
	if start.IsZero() {
		return
	}
	m.Record(target, time.Since(start), isError)
}

func updateMinMax(tm *TargetMetrics, d uint64) {
	for {
		cur := tm.MinDuration.Load()
		if cur != 0 && d >= cur {
			break
		}
		if tm.MinDuration.CompareAndSwap(cur, d) {
			break
		}
	}
	for {
		cur := tm.MaxDuration.Load()
		if d <= cur {
			break
		}
		if tm.MaxDuration.CompareAndSwap(cur, d) {
			break
		}
	}
}

func bucketIndex(d time.Duration) int {
	for i, bound := range bucketBounds {
		if d < bound {
			return i
		}
	}
	return len(bucketBounds)
}

// OnDetect sets fn to be called by Run for every bottleneck that was not
// present in the previous analysis. Set it before Run.
func (m *Monitor) OnDetect(fn func(Bottleneck)) {
	m.bottleneckMu.Lock()
	m.onDetect = fn
	m.bottleneckMu.Unlock()
}

// Run re-analyzes every interval until ctx is done
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !m.enabled.Load() {
				continue
			}
			m.update(m.Analyze())
		}
	}
}

// update stores found and reports the bottlenecks that are new
func (m *Monitor) update(found []Bottleneck) {
	m.bottleneckMu.Lock()
	prev := make(map[string]bool, len(m.bottlenecks))
	for _, b := range m.bottlenecks {
		prev[b.Type+" "+b.Target] = true
	}
	m.bottlenecks = found
	fn := m.onDetect
	m.bottleneckMu.Unlock()

	if fn == nil {
		return
	}
	for _, b := range found {
		if !prev[b.Type+" "+b.Target] {
			fn(b)
		}
	}
}

// Analyze flags targets with a high average latency or error rate
func (m *Monitor) Analyze() []Bottleneck {
	var found []Bottleneck
	now := time.Now()

	m.targets.Range(func(_, value any) bool {
		tm := value.(*TargetMetrics)
		count := tm.Count.Load()
		if count == 0 {
			return true
		}

		avg := time.Duration(tm.TotalDuration.Load() / count)
		if avg > SlowThreshold {
			found = append(found, Bottleneck{
				Type:       "latency",
				Target:     tm.Name,
				Severity:   8,
				DetectedAt: now,
				Details:    fmt.Sprintf("high latency (%v avg)", avg),
			})
		}

		errs := tm.Errors.Load()
		if rate := float64(errs) / float64(count); errs > 0 && rate > ErrorRateThreshold {
			found = append(found, Bottleneck{
				Type:       "errors",
				Target:     tm.Name,
				Severity:   10,
				DetectedAt: now,
				Details:    fmt.Sprintf("%.1f%% error rate", rate*100),
			})
		}
		return true
	})

	sort.Slice(found, func(i, j int) bool { return found[i].Target < found[j].Target })
	return found
}

// Bottlenecks returns the result of the last periodic analysis
func (m *Monitor) Bottlenecks() []Bottleneck {
	m.bottleneckMu.RLock()
	defer m.bottleneckMu.RUnlock()
	return append([]Bottleneck(nil), m.bottlenecks...)
}

// Summary returns every target sorted by name
func (m *Monitor) Summary() []TargetSummary {
	var out []TargetSummary
	m.targets.Range(func(_, value any) bool {
		tm := value.(*TargetMetrics)
		s := TargetSummary{
			Name:   tm.Name,
			Count:  tm.Count.Load(),
			Errors: tm.Errors.Load(),
			Min:    time.Duration(tm.MinDuration.Load()),
			Max:    time.Duration(tm.MaxDuration.Load()),
		}
		s.Buckets = make([]uint64, len(tm.buckets))
		for i := range tm.buckets {
			s.Buckets[i] = tm.buckets[i].Load()
		}
		if s.Count > 0 {
			s.Avg = time.Duration(tm.TotalDuration.Load() / s.Count)
		}
		out = append(out, s)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Requests returns the total number of recorded requests
func (m *Monitor) Requests() uint64 {
	return m.global.requests.Load()
}
