package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		ordersCreatedTotal,
		verifyRequestsTotal,
		refundsTotal,
		webhookEventsTotal,
		gatewayRequestDuration,
	)
}

var (
	ordersCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coursepay_orders_created_total",
			Help: "Gateway orders by gateway and outcome (ok/validation/config/gateway).",
		},
		[]string{"gateway", "outcome"},
	)

	verifyRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coursepay_payment_verify_requests_total",
			Help: "Payment verifications by gateway and result (success/failed/error).",
		},
		[]string{"gateway", "result"},
	)

	refundsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coursepay_refunds_total",
			Help: "Refund requests by gateway and outcome.",
		},
		[]string{"gateway", "outcome"},
	)

	webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coursepay_webhook_events_total",
			Help: "Webhook deliveries by gateway and stage outcome (accepted/header/signature/parse/process).",
		},
		[]string{"gateway", "outcome"},
	)

	gatewayRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coursepay_gateway_request_duration_seconds",
			Help:    "Latency of outbound gateway calls.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"gateway", "operation"},
	)
)

func IncOrderCreated(gateway, outcome string) {
	ordersCreatedTotal.WithLabelValues(norm(gateway), norm(outcome)).Inc()
}

func IncVerification(gateway, result string) {
	verifyRequestsTotal.WithLabelValues(norm(gateway), norm(result)).Inc()
}

func IncRefund(gateway, outcome string) {
	refundsTotal.WithLabelValues(norm(gateway), norm(outcome)).Inc()
}

func IncWebhook(gateway, outcome string) {
	webhookEventsTotal.WithLabelValues(norm(gateway), norm(outcome)).Inc()
}

// ObserveGatewayCall records the latency of one outbound call started at start.
func ObserveGatewayCall(gateway, operation string, start time.Time) {
	gatewayRequestDuration.WithLabelValues(norm(gateway), norm(operation)).Observe(time.Since(start).Seconds())
}

func norm(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "unknown"
	}
	return s
}
