// Package metrics exposes the supervisor/worker's observability
// counters via VictoriaMetrics/metrics, the admin HTTP surface's
// backing store (SPEC_FULL.md §6.5).
package metrics

import (
	"io"

	"github.com/VictoriaMetrics/metrics"
)

var (
	BridgeQueueDepth  = metrics.NewGauge("nanobot_bridge_queue_depth", nil)
	FetchCacheHits    = metrics.NewCounter("nanobot_fetch_cache_hits_total")
	FetchCacheMisses  = metrics.NewCounter("nanobot_fetch_cache_misses_total")
	FetchErrors       = metrics.NewCounter("nanobot_fetch_errors_total")
	PluginDispatchErr = metrics.NewCounter("nanobot_plugin_dispatch_errors_total")
	WorkerRespawns    = metrics.NewCounter("nanobot_worker_respawns_total")
)

// WritePrometheus writes the text exposition format to w, for the
// /metrics admin endpoint.
func WritePrometheus(w io.Writer) {
	metrics.WritePrometheus(w, true)
}
