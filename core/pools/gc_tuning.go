package pools

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

// GC profile names accepted by ApplyGCProfile
const (
	GCDefault    = "default"
	GCThroughput = "throughput"
	GCLatency    = "latency"
)

// GCConfig holds GC tuning parameters
type GCConfig struct {
	// GOGC sets the collection target percentage; 0 keeps the runtime value
	GOGC int

	// MemoryLimit sets a soft memory limit in bytes; 0 = no limit
	MemoryLimit int64
}

// GCProfile returns the settings for a named profile.
// Cached bodies live as long as the cache, so the throughput profile lets
// the heap grow further before collecting.
func GCProfile(name string) (GCConfig, error) {
	switch name {
	case "", GCDefault:
		return GCConfig{}, nil
	case GCThroughput:
		return GCConfig{GOGC: 300}, nil
	case GCLatency:
		return GCConfig{GOGC: 150}, nil
	}
	return GCConfig{}, fmt.Errorf("pools: unknown GC profile %q", name)
}

// ApplyGCConfig applies cfg and returns the previous GOGC value
func ApplyGCConfig(cfg GCConfig) int {
	prev := debug.SetGCPercent(-1)
	debug.SetGCPercent(prev)

	if cfg.GOGC > 0 {
		debug.SetGCPercent(cfg.GOGC)
	}
	if cfg.MemoryLimit > 0 {
		debug.SetMemoryLimit(cfg.MemoryLimit)
	}
	return prev
}

// ApplyGCProfile looks up and applies a named profile
func ApplyGCProfile(name string) error {
	cfg, err := GCProfile(name)
	if err != nil {
		return err
	}
	ApplyGCConfig(cfg)
	return nil
}

// GCStats holds garbage collection statistics
type GCStats struct {
	NumGC        uint32
	PauseTotal   time.Duration
	LastPause    time.Duration
	HeapAlloc    uint64
	Sys          uint64
	NumGoroutine int
}

// GetGCStats returns current GC statistics
func GetGCStats() GCStats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	stats := GCStats{
		NumGC:        ms.NumGC,
		PauseTotal:   time.Duration(ms.PauseTotalNs),
		HeapAlloc:    ms.HeapAlloc,
		Sys:          ms.Sys,
		NumGoroutine: runtime.NumGoroutine(),
	}
	if ms.NumGC > 0 {
		stats.LastPause = time.Duration(ms.PauseNs[(ms.NumGC+255)%256])
	}
	return stats
}
