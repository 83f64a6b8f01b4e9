// Package metrics exposes Prometheus metrics for the game session.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the session controller.
type Metrics struct {
	registry *prometheus.Registry

	RoundsStarted  prometheus.Counter
	Violations     prometheus.Counter
	Unlocks        prometheus.Counter
	CorrectGuesses *prometheus.CounterVec
	Reconnects     prometheus.Counter
	FramesDropped  prometheus.Counter
	TokensTotal    *prometheus.CounterVec
	CostUSDTotal   prometheus.Counter
	SessionsActive prometheus.Gauge
}

// New creates a Metrics instance with all metrics registered.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "taboo"
	}

	registry := prometheus.NewRegistry()

	roundsStarted := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rounds_started_total",
		Help:      "Total number of rounds started",
	})

	violations := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "violations_total",
		Help:      "Total forbidden words spoken by the player",
	})

	unlocks := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "unlocks_total",
		Help:      "Total forbidden words unlocked by the AI peer",
	})

	correctGuesses := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "correct_guesses_total",
			Help:      "Total correct guesses by detection source",
		},
		[]string{"source"},
	)

	reconnects := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconnects_total",
		Help:      "Total channel reconnection attempts",
	})

	framesDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_dropped_total",
		Help:      "Total inbound frames dropped due to a full event buffer",
	})

	tokensTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_total",
			Help:      "Total tokens processed",
		},
		[]string{"direction"},
	)

	costUSDTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cost_usd_total",
		Help:      "Estimated audio token cost in USD",
	})

	sessionsActive := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_active",
		Help:      "Number of active live sessions",
	})

	registry.MustRegister(
		roundsStarted,
		violations,
		unlocks,
		correctGuesses,
		reconnects,
		framesDropped,
		tokensTotal,
		costUSDTotal,
		sessionsActive,
	)

	return &Metrics{
		registry:       registry,
		RoundsStarted:  roundsStarted,
		Violations:     violations,
		Unlocks:        unlocks,
		CorrectGuesses: correctGuesses,
		Reconnects:     reconnects,
		FramesDropped:  framesDropped,
		TokensTotal:    tokensTotal,
		CostUSDTotal:   costUSDTotal,
		SessionsActive: sessionsActive,
	}
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordTokens records token usage for one response.
func (m *Metrics) RecordTokens(inputTokens, outputTokens int) {
	if inputTokens > 0 {
		m.TokensTotal.WithLabelValues("input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		m.TokensTotal.WithLabelValues("output").Add(float64(outputTokens))
	}
}

// RecordCost adds the estimated spend since the previous usage report.
// Non-positive deltas are ignored.
func (m *Metrics) RecordCost(deltaUSD float64) {
	if deltaUSD > 0 {
		m.CostUSDTotal.Add(deltaUSD)
	}
}

// RecordCorrectGuess records a correct guess with its detection source,
// either "tool_call" or "heuristic".
func (m *Metrics) RecordCorrectGuess(source string) {
	m.CorrectGuesses.WithLabelValues(source).Inc()
}
