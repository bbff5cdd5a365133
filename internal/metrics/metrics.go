package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for authentication attempts.
const (
	OutcomeSuccess    = "success"
	OutcomeValidation = "validation_error"
	OutcomeNetwork    = "network_error"
	OutcomeServer     = "server_error"
	OutcomeRejected   = "rejected"
	OutcomeSuperseded = "superseded"
)

// Metrics groups the client's collectors. A nil *Metrics is valid and records nothing,
// so components can take one optionally.
type Metrics struct {
	AuthAttempts *prometheus.CounterVec
	ForcedResets prometheus.Counter
	Responses    *prometheus.CounterVec
}

// New creates unregistered collectors. Use Register to expose them.
func New() *Metrics {
	return &Metrics{
		AuthAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fitness_client_auth_attempts_total",
				Help: "Total number of login and register attempts by outcome",
			},
			[]string{"op", "outcome"},
		),
		ForcedResets: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "fitness_client_forced_resets_total",
				Help: "Total number of sessions reset after a 401 or 403 response",
			},
		),
		Responses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fitness_client_responses_total",
				Help: "Total number of API responses by status class",
			},
			[]string{"class"},
		),
	}
}

// Register registers every collector with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.AuthAttempts, m.ForcedResets, m.Responses} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAuthAttempt(op, outcome string) {
	if m == nil {
		return
	}
	m.AuthAttempts.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) ObserveForcedReset() {
	if m == nil {
		return
	}
	m.ForcedResets.Inc()
}

// ObserveResponse counts a response by class ("2xx", "4xx", ...). A zero status
// counts as a transport error.
func (m *Metrics) ObserveResponse(status int) {
	if m == nil {
		return
	}
	m.Responses.WithLabelValues(StatusClass(status)).Inc()
}

// StatusClass buckets an HTTP status code.
func StatusClass(status int) string {
	if status < 100 || status > 599 {
		return "transport_error"
	}
	return strconv.Itoa(status/100) + "xx"
}
