package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

var (
	GatewayInitiations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wallet",
		Name:      "gateway_initiations_total",
		Help:      "Payment initiations by gateway and outcome.",
	}, []string{"gateway", "outcome"})

	Reconciliations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wallet",
		Name:      "reconciliations_total",
		Help:      "Reconciled payment orders by gateway and canonical status.",
	}, []string{"gateway", "status"})

	LedgerDispatches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wallet",
		Name:      "ledger_dispatches_total",
		Help:      "Ledger actions dispatched by action tag and outcome.",
	}, []string{"action", "outcome"})

	RemoteLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "wallet",
		Name:      "remote_call_duration_seconds",
		Help:      "Latency of calls to the wallet backend.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
)

func init() {
	prometheus.MustRegister(GatewayInitiations, Reconciliations, LedgerDispatches, RemoteLatency)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
