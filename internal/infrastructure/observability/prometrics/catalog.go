package prometrics

import (
	"github.com/Zhima-Mochi/minishop-inventory/internal/observability"

	"github.com/prometheus/client_golang/prometheus"
)

var latencyBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// Instruments registers every metric the service reports and returns them keyed for
// the observability provider.
func Instruments(r Registry) (map[observability.MetricKey]observability.Counter, map[observability.MetricKey]observability.Histogram) {
	counters := map[observability.MetricKey]observability.Counter{
		observability.MUsecaseRequests: r.Counter(string(observability.MUsecaseRequests),
			"Total number of use case invocations.", "use_case", "outcome"),
		observability.MHTTPRequests: r.Counter(string(observability.MHTTPRequests),
			"Total number of HTTP requests.", "method", "route", "status"),
		observability.MExternalRequests: r.Counter(string(observability.MExternalRequests),
			"Calls to peers such as the event bus or Kafka.", "peer", "endpoint", "outcome"),
		observability.MStockReservations: r.Counter(string(observability.MStockReservations),
			"Stock reserve and release attempts.", "op", "outcome"),
		observability.MLowStock: r.Counter(string(observability.MLowStock),
			"Reservations that left a product at or below the low-stock threshold.", "product_id"),
		observability.MPaymentWebhooks: r.Counter(string(observability.MPaymentWebhooks),
			"Payment webhook deliveries by outcome.", "outcome"),
	}
	histograms := map[observability.MetricKey]observability.Histogram{
		observability.MUsecaseDuration: r.Histogram(string(observability.MUsecaseDuration),
			"Duration of use case execution in seconds.", prometheus.DefBuckets, "use_case"),
		observability.MHTTPRequestDuration: r.Histogram(string(observability.MHTTPRequestDuration),
			"Duration of HTTP requests in seconds.", latencyBuckets, "method", "route", "status"),
		observability.MExternalRequestDuration: r.Histogram(string(observability.MExternalRequestDuration),
			"Duration of peer calls in seconds.", latencyBuckets, "peer", "endpoint"),
	}
	return counters, histograms
}
