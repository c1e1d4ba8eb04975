package randomness

import (
	"github.com/spacemeshos/go-randomness/metrics"
)

const namespace = "beacon"

var (
	transitions = metrics.NewCounter(
		"transitions",
		namespace,
		"number of applied beacon state transitions",
		[]string{"kind"},
	)
	createdCount = transitions.WithLabelValues("create")
	updatedCount = transitions.WithLabelValues("update")

	rejected = metrics.NewCounter(
		"rejected",
		namespace,
		"number of rejected beacon state transitions",
		[]string{"reason"},
	)

	latestRound = metrics.NewGauge(
		"latest_round",
		namespace,
		"randomness round of the current beacon value",
		[]string{},
	).WithLabelValues()
)
