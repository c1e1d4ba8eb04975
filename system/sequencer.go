package system

import (
	"context"

	"github.com/spacemeshos/go-randomness/common/types"
)

//go:generate mockgen -typed -package=mocks -destination=./mocks/sequencer.go -source=./sequencer.go

// Sequencer applies ordered inputs to the ledger. Calls must be made in the order the ordering
// layer committed them.
type Sequencer interface {
	AdvanceEpoch(context.Context) (types.EpochID, error)
	Submit(context.Context, *types.RandomnessStateUpdate) (*types.TransactionRecord, error)
	CreateCheckpoint(context.Context) (*types.Checkpoint, error)
}
