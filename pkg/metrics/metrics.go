package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SwapsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solswap_swaps_total",
			Help: "Swaps finished, by outcome (success or error kind)",
		},
		[]string{"outcome"},
	)

	RouteAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solswap_route_attempts_total",
			Help: "Candidate routes attempted, by result",
		},
		[]string{"result"},
	)

	SubmitAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solswap_submit_attempts_total",
			Help: "Transaction broadcast attempts, by result",
		},
		[]string{"result"},
	)

	PrereqAccountsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solswap_prereq_accounts_total",
			Help: "Holding account creations, by result",
		},
		[]string{"result"},
	)

	SwapDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "solswap_swap_duration_seconds",
		Help:    "Wall time of a swap from resolve to outcome",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
	})
)
