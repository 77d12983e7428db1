// system.go captures runtime state attached to events under contexts.

package faultline

import (
	"runtime"
	"time"
)

// runtimeContext captures process metrics at capture time. Attached to
// every event as the "runtime" context group.
func runtimeContext(startTime, now time.Time) map[string]any {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	uptimeMs := now.Sub(startTime).Milliseconds()
	if uptimeMs < 0 {
		uptimeMs = 0
	}

	return map[string]any{
		"go_version":      runtime.Version(),
		"memory_bytes":    int64(memStats.Alloc),
		"goroutine_count": runtime.NumGoroutine(),
		"num_cpu":         runtime.NumCPU(),
		"uptime_ms":       uptimeMs,
	}
}
