package events

import (
	"github.com/spacemeshos/go-randomness/common/types"
)

// EventEpoch is reported after the ledger entered a new epoch.
type EventEpoch struct {
	Epoch           types.EpochID
	ProtocolVersion types.ProtocolVersion
	BeaconEnabled   bool
}

// EventRandomnessCreated is reported after the beacon object was created.
type EventRandomnessCreated struct {
	Epoch                types.EpochID
	InitialSharedVersion types.ObjectVersion
	Transaction          types.Hash32
}

// EventRandomnessUpdated is reported after a beacon value was committed.
type EventRandomnessUpdated struct {
	Epoch           types.EpochID
	Round           types.RoundID
	RandomnessRound types.RandomnessRound
	RandomBytes     []byte
	Version         types.ObjectVersion
	Transaction     types.Hash32
}

// EventCheckpoint is reported after a checkpoint was sealed.
type EventCheckpoint struct {
	Checkpoint types.Checkpoint
}
