/**
 * @description
 * Prometheus instruments for the payment flow. The `/metrics` endpoint exposes them
 * through promhttp.
 *
 * @dependencies
 * - github.com/prometheus/client_golang: Counter and histogram instruments.
 */
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Settlement outcomes.
const (
	OutcomeSettled      = "settled"
	OutcomeDuplicate    = "duplicate"
	OutcomeIgnored      = "ignored"
	OutcomeInvalid      = "invalid"
	OutcomeFailed       = "failed"
	OutcomeBadSignature = "bad_signature"
)

// Metrics groups the service's instruments. A nil *Metrics records nothing.
type Metrics struct {
	settlements     *prometheus.CounterVec
	gatewayCalls    *prometheus.CounterVec
	gatewayDuration *prometheus.HistogramVec
	authFailures    *prometheus.CounterVec
}

// New registers the instruments on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		settlements: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "schoolfees",
			Name:      "settlements_total",
			Help:      "Webhook settlement attempts by outcome.",
		}, []string{"outcome"}),
		gatewayCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "schoolfees",
			Name:      "gateway_calls_total",
			Help:      "Paystack API calls by operation and result.",
		}, []string{"op", "result"}),
		gatewayDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "schoolfees",
			Name:      "gateway_call_duration_seconds",
			Help:      "Latency of Paystack API calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		authFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "schoolfees",
			Name:      "auth_failures_total",
			Help:      "Rejected authentications by reason.",
		}, []string{"reason"}),
	}
}

func (m *Metrics) Settlement(outcome string) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(outcome).Inc()
}

// GatewayCall records one Paystack call. result is "ok" or an error class.
func (m *Metrics) GatewayCall(op, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.gatewayCalls.WithLabelValues(op, result).Inc()
	m.gatewayDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (m *Metrics) AuthFailure(reason string) {
	if m == nil {
		return
	}
	m.authFailures.WithLabelValues(reason).Inc()
}
