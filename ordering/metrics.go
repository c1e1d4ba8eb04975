package ordering

import (
	"github.com/spacemeshos/go-randomness/metrics"
)

const subsystem = "ordering"

var applied = metrics.NewCounter(
	"events",
	subsystem,
	"number of ordered events by type and outcome",
	[]string{"type", "outcome"},
)
