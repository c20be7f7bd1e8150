package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersIncrement(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Settlement(OutcomeSettled)
	m.Settlement(OutcomeSettled)
	m.Settlement(OutcomeDuplicate)
	m.GatewayCall("charge", "ok", 120*time.Millisecond)
	m.AuthFailure("refresh_reuse")

	if got := testutil.ToFloat64(m.settlements.WithLabelValues(OutcomeSettled)); got != 2 {
		t.Fatalf("expected 2 settled, got %v", got)
	}
	if got := testutil.ToFloat64(m.settlements.WithLabelValues(OutcomeDuplicate)); got != 1 {
		t.Fatalf("expected 1 duplicate, got %v", got)
	}
	if got := testutil.ToFloat64(m.gatewayCalls.WithLabelValues("charge", "ok")); got != 1 {
		t.Fatalf("expected 1 gateway call, got %v", got)
	}
	if got := testutil.ToFloat64(m.authFailures.WithLabelValues("refresh_reuse")); got != 1 {
		t.Fatalf("expected 1 auth failure, got %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Settlement(OutcomeFailed)
	m.GatewayCall("otp", "timeout", time.Second)
	m.AuthFailure("invalid_token")
}
