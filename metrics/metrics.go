// Package metrics exposes the runtime's Prometheus surface (SPEC_FULL
// component K). Grounded on the teacher's stats/common_prom.go: a private
// registry (kept free of the default go_gc*/go_mem* series) plus a
// promhttp handler the debug server mounts.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var registry = prometheus.NewRegistry()

var (
	// DispatchInFlight tracks calls currently executing an entry point
	// (module pinned, arena live) — spec.md §4.F steps 5-7.
	DispatchInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sprocd_dispatch_in_flight",
		Help: "Number of dispatch calls currently executing an entry point.",
	})

	// DispatchLatency buckets wall-clock call duration in seconds.
	DispatchLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sprocd_dispatch_latency_seconds",
		Help:    "Entry point call latency.",
		Buckets: prometheus.DefBuckets,
	})

	// CacheHits/CacheMisses count module.Cache.LoadOrGet outcomes
	// (spec.md §4.C).
	CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sprocd_module_cache_hits_total",
		Help: "load_or_get calls satisfied by an attribute-matching cached module.",
	})
	CacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sprocd_module_cache_misses_total",
		Help: "load_or_get calls that triggered a (re)load.",
	})

	// OrphanModules is registered for modules evicted from the cache but
	// still kept alive by surviving symbols or in-flight calls (spec.md
	// §3). Nothing in this repository sets it, so it always reports 0;
	// debugsrv's /modules lists the orphans themselves.
	OrphanModules = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sprocd_module_orphans",
		Help: "Modules no longer reachable via the cache but still referenced.",
	})

	// JournalQueueLen/JournalQueueSize mirror journal.Queue's own
	// counters (spec.md §4.H) for external observability.
	JournalQueueLen = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sprocd_journal_queue_len",
		Help: "Number of entries currently admitted but not yet written.",
	})
	JournalQueueSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sprocd_journal_queue_size_bytes",
		Help: "Approximate encoded bytes currently in flight in the journal queue.",
	})
	JournalWaiters = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sprocd_journal_waiters",
		Help: "Producers currently suspended waiting for journal admission.",
	})
)

func init() {
	registry.MustRegister(
		DispatchInFlight, DispatchLatency,
		CacheHits, CacheMisses, OrphanModules,
		JournalQueueLen, JournalQueueSize, JournalWaiters,
	)
}

// Handler returns the promhttp handler for this registry, mounted by
// debugsrv under /metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
