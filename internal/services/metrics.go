package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// deliveriesTotal counts processed webhook deliveries by outcome:
	// "contact", "agent", "echo", "ignored".
	deliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_deliveries_total",
			Help: "Webhook deliveries processed by the channel bridge, by outcome.",
		},
		[]string{"outcome"},
	)

	// suggestionsPublished counts individual suggestion texts published to
	// the channel (batch sizes summed).
	suggestionsPublished = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bridge_suggestions_published_total",
			Help: "Suggested reply texts published to the channel.",
		},
	)

	// suggestionsPaused counts fallback invocations that ended in a human
	// handoff because no candidate intent survived filtering.
	suggestionsPaused = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bridge_suggestions_paused_total",
			Help: "Fallback invocations that paused the conversation for handoff.",
		},
	)
)

func init() {
	prometheus.MustRegister(deliveriesTotal, suggestionsPublished, suggestionsPaused)
}
