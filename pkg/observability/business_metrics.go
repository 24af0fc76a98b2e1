package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// STK push initiation metrics
	stkPushInitiationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stk_push_initiations_total",
		Help: "Total STK push initiation attempts",
	}, []string{
		"outcome", // accepted, validation_error, gateway_error, gateway_timeout, protocol_violation
	})

	stkPushInitiationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "stk_push_initiation_duration_seconds",
		Help: "Time to get a push request accepted or rejected by the provider",
		// Provider queues the push; 30s is the hard timeout
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{
		"outcome",
	})

	stkPushAmountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stk_push_amount_total",
		Help: "Total amount, in whole currency units, of accepted push requests",
	})

	// Webhook ingestion metrics
	webhooksReceivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhooks_received_total",
		Help: "Total webhook notifications received",
	}, []string{
		"result", // applied, unchanged, signature_missing, signature_invalid, malformed
	})

	// Store transitions, whichever signal caused them
	statusTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_status_transitions_total",
		Help: "Payment record status changes",
	}, []string{
		"to",     // pending, success, failed
		"source", // initiation, webhook, poll, recovery
	})

	// Status poll metrics
	statusPollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_status_polls_total",
		Help: "Total status polls by how they were answered",
	}, []string{
		"result", // local, resolved, recovered, not_found
	})

	// Remote fetcher metrics
	statusFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lipana_status_fetches_total",
		Help: "Transaction list scans by outcome",
	}, []string{
		"outcome", // found, not_found, transport_failure
	})

	statusFetchPages = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lipana_status_fetch_pages",
		Help:    "Pages read per transaction list scan",
		Buckets: []float64{0, 1, 2, 3, 5},
	})

	statusFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lipana_status_fetch_duration_seconds",
		Help:    "Duration of a whole transaction list scan",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{
		"outcome",
	})

	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{
		"name",
	})
)

// RecordInitiation records the outcome of one /pay request
func RecordInitiation(outcome string, amount int64, duration float64) {
	stkPushInitiationsTotal.WithLabelValues(outcome).Inc()
	stkPushInitiationDuration.WithLabelValues(outcome).Observe(duration)

	// Only accepted pushes count toward volume
	if outcome == "accepted" {
		stkPushAmountTotal.Add(float64(amount))
	}
}

// RecordWebhook records how a webhook delivery was handled
func RecordWebhook(result string) {
	webhooksReceivedTotal.WithLabelValues(result).Inc()
}

// RecordStatusTransition records a stored status change
func RecordStatusTransition(to, source string) {
	statusTransitionsTotal.WithLabelValues(to, source).Inc()
}

// RecordStatusPoll records how a status poll was answered
func RecordStatusPoll(result string) {
	statusPollsTotal.WithLabelValues(result).Inc()
}

// RecordStatusFetch records one remote transaction list scan
func RecordStatusFetch(outcome string, pages int, duration float64) {
	statusFetchesTotal.WithLabelValues(outcome).Inc()
	statusFetchPages.Observe(float64(pages))
	statusFetchDuration.WithLabelValues(outcome).Observe(duration)
}

// SetCircuitBreakerState publishes a breaker's state
func SetCircuitBreakerState(name string, state int) {
	circuitBreakerState.WithLabelValues(name).Set(float64(state))
}
