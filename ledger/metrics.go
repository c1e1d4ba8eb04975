package ledger

import (
	"github.com/spacemeshos/go-randomness/metrics"
)

const subsystem = "ledger"

var (
	transactionsCount = metrics.NewCounter(
		"transactions",
		subsystem,
		"number of committed transactions by kind",
		[]string{"kind"},
	)
	submitted = metrics.NewCounter(
		"submitted",
		subsystem,
		"number of submitted updates by outcome",
		[]string{"outcome"},
	)
	acceptedUpdates = submitted.WithLabelValues("accepted")
	rejectedUpdates = submitted.WithLabelValues("rejected")

	commitDuration = metrics.NewHistogramWithBuckets(
		"commit_duration_seconds",
		subsystem,
		"duration of ledger transactions",
		[]string{"op"},
		[]float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	)
	sealedCheckpoint = metrics.NewGauge(
		"checkpoint",
		subsystem,
		"sequence of the last sealed checkpoint",
		[]string{},
	).WithLabelValues()
)
