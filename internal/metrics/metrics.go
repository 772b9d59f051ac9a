package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "debatelab_api_requests_total",
			Help: "Total HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "debatelab_api_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	LLMRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "debatelab_llm_requests_total",
			Help: "LLM completion calls by purpose and outcome",
		},
		[]string{"purpose", "outcome"},
	)

	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "debatelab_llm_request_duration_seconds",
			Help:    "LLM completion latency in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
		[]string{"purpose"},
	)

	BattlesMatched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "debatelab_battles_matched_total",
			Help: "Battles created by queue matching",
		},
	)

	BattleRounds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "debatelab_battle_rounds_total",
			Help: "Battle round submissions by outcome",
		},
		[]string{"outcome"},
	)

	ScoresDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "debatelab_battle_scores_dropped_total",
			Help: "Battle turns stored without a score because evaluation failed",
		},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "debatelab_websocket_connections",
			Help: "Open battle websocket connections",
		},
	)
)

// RecordAPIRequest records one finished HTTP request.
func RecordAPIRequest(method, route, status string, d time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordLLMRequest records one LLM call.
func RecordLLMRequest(purpose string, err error, d time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	LLMRequestsTotal.WithLabelValues(purpose, outcome).Inc()
	LLMRequestDuration.WithLabelValues(purpose).Observe(d.Seconds())
}
