package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gmedchain_web"

// Outcome labels for NodeRequests
const (
	OutcomeOK        = "ok"
	OutcomeHTTPError = "http_error"
	OutcomeTransport = "transport_error"
	OutcomeDecode    = "decode_error"
)

var (
	// NodeRequests counts calls to the node API by endpoint and outcome
	NodeRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "node_requests_total",
		Help:      "Requests sent to the gmedchain node API.",
	}, []string{"endpoint", "outcome"})

	// FormRejections counts create dialog submissions blocked client side
	FormRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "form_rejections_total",
		Help:      "Order creation dialog submissions rejected before any request.",
	}, []string{"reason"})

	// ResultDialogs tracks result dialogs waiting for a node response
	ResultDialogs = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pending_result_dialogs",
		Help:      "Result dialogs opened whose command has not resolved yet.",
	})
)
