// Package public holds the metrics that are safe to push to a shared gateway.
package public

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var Registry = prometheus.NewRegistry()

var (
	Epoch = promauto.With(Registry).NewGauge(prometheus.GaugeOpts{
		Namespace: "randomness",
		Name:      "epoch",
		Help:      "current epoch of the ledger",
	})
	RandomnessRound = promauto.With(Registry).NewGauge(prometheus.GaugeOpts{
		Namespace: "randomness",
		Name:      "beacon_round",
		Help:      "randomness round of the latest applied beacon value",
	})
)
