// Package metrics holds the Prometheus collectors of the crawler and the
// statistics aggregator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "brawlrec"

var (
	SourceRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "source_requests_total",
		Help:      "Outbound deck source requests by endpoint and result.",
	}, []string{"endpoint", "result"})

	SourceRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "source_request_duration_seconds",
		Help:      "Latency of outbound deck source requests, throttle wait excluded.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint"})

	SourceThrottleWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "source_throttle_wait_seconds",
		Help:      "Time spent waiting on the politeness throttle.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})

	DecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "decks_total",
		Help:      "Decks examined by the ingestion pipeline, by outcome.",
	}, []string{"outcome"})

	CommandersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "aggregated_commanders_total",
		Help:      "Commanders visited by the statistics aggregator, by result.",
	}, []string{"result"})

	CardStatsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "card_stats_written_total",
		Help:      "CardStat rows upserted by the statistics aggregator.",
	})

	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Scrape runs by result.",
	}, []string{"result"})

	PhaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "phase_duration_seconds",
		Help:      "Duration of the ingestion and aggregation phases.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 14),
	}, []string{"phase"})
)
